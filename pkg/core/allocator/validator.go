package allocator

import (
	"fmt"
	"math"
)

// Conservation property names reported in Violations
const (
	PropertyNonNegative     = "NonNegative"
	PropertyWorkerDemand    = "WorkerDemand"
	PropertyDamageCeiling   = "DamageCeiling"
	PropertyWorkerPool      = "WorkerPool"
	PropertyEnergyDemand    = "EnergyDemand"
	PropertyEnergyBalance   = "EnergyBalance"
	PropertyProducerCeiling = "ProducerCeiling"
)

// ValidateGroup checks a group's allocations against the conservation properties
// every strategy must honour. With damageAware set, per-profile worker ceilings
// are also checked. An empty slice means the allocation is valid.
func ValidateGroup(g *Group, damageAware bool) []Violation {
	var violations []Violation

	workersAllocated := 0
	energyProduced := 0
	energyConsumed := 0

	for i, p := range g.Profiles {
		if p.WorkerAllocated < 0 || p.EnergyAllocated < 0 {
			violations = append(violations, Violation{
				ProfileIndex: i,
				Property:     PropertyNonNegative,
				Description:  fmt.Sprintf("negative allocation: workers=%d energy=%d", p.WorkerAllocated, p.EnergyAllocated),
			})
		}

		if p.WorkerAllocated > p.WorkerDemand {
			violations = append(violations, Violation{
				ProfileIndex: i,
				Property:     PropertyWorkerDemand,
				Description:  fmt.Sprintf("allocated %d workers but demand is %d", p.WorkerAllocated, p.WorkerDemand),
			})
		}

		if damageAware {
			ceiling := int(math.Round(float64(p.WorkerDemand) * p.EfficiencyBound))
			if p.WorkerAllocated > ceiling {
				violations = append(violations, Violation{
					ProfileIndex: i,
					Property:     PropertyDamageCeiling,
					Description:  fmt.Sprintf("allocated %d workers but damage ceiling is %d", p.WorkerAllocated, ceiling),
				})
			}
		}

		workersAllocated += p.WorkerAllocated

		if p.ProducesEnergy {
			if p.EnergyAllocated > p.EnergyDemand {
				violations = append(violations, Violation{
					ProfileIndex: i,
					Property:     PropertyProducerCeiling,
					Description:  fmt.Sprintf("produced %d energy but capacity is %d", p.EnergyAllocated, p.EnergyDemand),
				})
			}
			energyProduced += p.EnergyAllocated
			continue
		}

		if p.EnergyAllocated > p.EnergyDemand {
			violations = append(violations, Violation{
				ProfileIndex: i,
				Property:     PropertyEnergyDemand,
				Description:  fmt.Sprintf("allocated %d energy but demand is %d", p.EnergyAllocated, p.EnergyDemand),
			})
		}
		energyConsumed += p.EnergyAllocated
	}

	if workersAllocated > g.AvailableWorkers {
		violations = append(violations, Violation{
			ProfileIndex: -1,
			Property:     PropertyWorkerPool,
			Description:  fmt.Sprintf("allocated %d workers from a pool of %d", workersAllocated, g.AvailableWorkers),
		})
	}

	if energyConsumed > energyProduced {
		violations = append(violations, Violation{
			ProfileIndex: -1,
			Property:     PropertyEnergyBalance,
			Description:  fmt.Sprintf("consumed %d energy but only %d was produced", energyConsumed, energyProduced),
		})
	}

	return violations
}
