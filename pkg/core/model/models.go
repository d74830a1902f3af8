package model

import (
	"math"

	"github.com/jakechorley/colony-allocator/pkg/core/allocator"
)

type BuildingKind string

const (
	KindFactory    BuildingKind = "factory"
	KindPowerPlant BuildingKind = "power_plant"
	KindHousing    BuildingKind = "housing"
	KindWorkshop   BuildingKind = "workshop"
)

func (k BuildingKind) IsValid() bool {
	switch k {
	case KindFactory, KindPowerPlant, KindHousing, KindWorkshop:
		return true
	}
	return false
}

// Planet represents a settlement with its own worker pool
type Planet struct {
	ID               string
	Name             string
	AvailableWorkers int
	Strategy         string // Empty string means the configured default
	Paused           bool
}

// Building is the live entity an allocation is written back to
type Building struct {
	ID                string
	PlanetID          string
	Name              string
	Kind              BuildingKind
	WorkerDemand      int
	EnergyDemand      int
	Damage            float64 // 0 is intact, 1 is destroyed
	UnderConstruction bool
	Active            bool

	WorkerAllocated int
	EnergyAllocated int
}

// SetAllocation stores the result of an allocation pass
func (b *Building) SetAllocation(workers, energy int) {
	b.WorkerAllocated = workers
	b.EnergyAllocated = energy
}

// ProducesEnergy returns true for power plants
func (b *Building) ProducesEnergy() bool {
	return b.Kind == KindPowerPlant
}

// EfficiencyBound is the fraction of full output the building's structure still allows
func (b *Building) EfficiencyBound() float64 {
	return math.Max(0, math.Min(1, 1-b.Damage))
}

// Participates returns true if the building takes part in allocation passes
func (b *Building) Participates() bool {
	return b.Active && !b.UnderConstruction
}

// Profile builds a fresh allocation profile owned by the building
func (b *Building) Profile() *allocator.Profile {
	return &allocator.Profile{
		WorkerDemand:    b.WorkerDemand,
		EnergyDemand:    b.EnergyDemand,
		ProducesEnergy:  b.ProducesEnergy(),
		EfficiencyBound: b.EfficiencyBound(),
		Owner:           b,
	}
}

// Efficiency is the fraction of full output the building reaches with its
// current allocation: the scarcer of workers and energy decides, and
// damage caps both
func (b *Building) Efficiency() float64 {
	efficiency := b.EfficiencyBound()

	if b.WorkerDemand > 0 {
		efficiency = math.Min(efficiency, float64(b.WorkerAllocated)/float64(b.WorkerDemand))
	}
	if !b.ProducesEnergy() && b.EnergyDemand > 0 {
		efficiency = math.Min(efficiency, float64(b.EnergyAllocated)/float64(b.EnergyDemand))
	}

	return efficiency
}
