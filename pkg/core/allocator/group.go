package allocator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidGroup is returned when a group fails validation at construction
var ErrInvalidGroup = errors.New("invalid allocation group")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// NewGroup builds an allocation group and rejects negative demands, negative
// pools and efficiency bounds outside [0, 1].
//
// Profiles are used as-is (not copied); callers build fresh profiles for every pass.
func NewGroup(profiles []*Profile, availableWorkers int, strategy Strategy) (*Group, error) {
	for i, p := range profiles {
		if p == nil {
			return nil, fmt.Errorf("%w: profile %d is nil", ErrInvalidGroup, i)
		}
	}

	group := &Group{
		Profiles:         profiles,
		AvailableWorkers: availableWorkers,
		Strategy:         strategy,
	}

	if err := validate.Struct(group); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGroup, err)
	}

	return group, nil
}

// Allocate runs the group's strategy, overwriting every profile's allocation,
// and checks the result against the conservation properties
func (g *Group) Allocate() Outcome {
	outcome := g.Strategy.allocate(g)
	outcome.Violations = ValidateGroup(g, g.Strategy.DamageAware())
	return outcome
}

// Commit copies every profile's allocation into its owner.
// Profiles without an owner are skipped.
func (g *Group) Commit() int {
	committed := 0
	for _, p := range g.Profiles {
		if p.Owner == nil {
			continue
		}
		p.Owner.SetAllocation(p.WorkerAllocated, p.EnergyAllocated)
		committed++
	}
	return committed
}

// Clone returns a deep copy of the group's profiles with the same owners.
// Useful for comparing strategies on identical inputs.
func (g *Group) Clone() *Group {
	profiles := make([]*Profile, len(g.Profiles))
	for i, p := range g.Profiles {
		cp := *p
		profiles[i] = &cp
	}
	return &Group{
		Profiles:         profiles,
		AvailableWorkers: g.AvailableWorkers,
		Strategy:         g.Strategy,
	}
}

// summarize totals a group's demands and allocations after a strategy ran
func summarize(g *Group, strategy string) Outcome {
	outcome := Outcome{
		Strategy: strategy,
	}

	for _, p := range g.Profiles {
		outcome.WorkerDemand += p.WorkerDemand
		outcome.WorkerAllocated += p.WorkerAllocated
		if p.ProducesEnergy {
			outcome.EnergyProduced += p.EnergyAllocated
		} else {
			outcome.EnergyDemand += p.EnergyDemand
			outcome.EnergyConsumed += p.EnergyAllocated
		}
	}

	return outcome
}
