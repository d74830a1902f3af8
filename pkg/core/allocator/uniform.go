package allocator

import "math"

// allocateUniform distributes workers proportionally to worker demand, then
// distributes the energy produced by staffed power plants proportionally to
// consumer energy demand.
//
// Workers are assigned in profile order and each assignment is clamped to what
// is left of the pool, so rounding drift lands on the last profiles.
//
// With damageAware set, every demand figure is scaled by the profile's
// efficiency bound and no profile's target exceeds its bound.
func allocateUniform(g *Group, damageAware bool) {
	allocateZero(g)

	bound := func(p *Profile) float64 {
		if damageAware {
			return p.EfficiencyBound
		}
		return 1.0
	}

	// Worker phase
	demandWorker := 0.0
	for _, p := range g.Profiles {
		demandWorker += float64(p.WorkerDemand) * bound(p)
	}
	// No staffable demand means no plant can run, so energy stays at zero
	// even for plants that need no workers.
	if demandWorker == 0 {
		return
	}

	targetEfficiency := math.Min(1.0, float64(g.AvailableWorkers)/demandWorker)
	remainingWorkers := g.AvailableWorkers
	availableEnergy := 0

	for _, p := range g.Profiles {
		efficiency := targetEfficiency
		if damageAware {
			efficiency = math.Min(targetEfficiency, p.EfficiencyBound)
		}

		workers := int(math.Round(float64(p.WorkerDemand) * efficiency))
		workers = min(workers, remainingWorkers)
		p.WorkerAllocated = workers
		remainingWorkers -= workers

		if p.ProducesEnergy {
			produced := int(math.Floor(float64(p.EnergyDemand) * achievedEfficiency(p, bound(p))))
			p.EnergyAllocated = produced
			availableEnergy += produced
		}
	}

	// Energy phase
	demandEnergy := 0.0
	for _, p := range g.Profiles {
		if p.IsConsumer() {
			demandEnergy += float64(p.EnergyDemand) * bound(p)
		}
	}
	if demandEnergy == 0 {
		return
	}

	targetEfficiency = math.Min(1.0, float64(availableEnergy)/demandEnergy)
	remainingEnergy := availableEnergy

	for _, p := range g.Profiles {
		if !p.IsConsumer() {
			continue
		}

		efficiency := targetEfficiency
		if damageAware {
			efficiency = math.Min(targetEfficiency, p.EfficiencyBound)
		}

		energy := int(math.Floor(float64(p.EnergyDemand) * efficiency))
		energy = min(energy, remainingEnergy)
		p.EnergyAllocated = energy
		remainingEnergy -= energy
	}
}

// achievedEfficiency is the fraction of a profile's worker demand that was met.
// A profile that needs no workers runs at its ceiling.
func achievedEfficiency(p *Profile, ceiling float64) float64 {
	if p.WorkerDemand == 0 {
		return ceiling
	}
	return math.Min(ceiling, float64(p.WorkerAllocated)/float64(p.WorkerDemand))
}
