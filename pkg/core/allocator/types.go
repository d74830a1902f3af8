package allocator

// Owner is the live building entity a profile was built from.
// SetAllocation is only ever called from the write-back executor.
type Owner interface {
	SetAllocation(workers, energy int)
}

// Profile is the per-building demand/allocation record read and written by strategies
type Profile struct {
	// WorkerDemand is the number of workers required for full operation
	WorkerDemand int `validate:"min=0"`

	// EnergyDemand is the energy required for full operation (consumers)
	// or the energy produced at full operation (producers)
	EnergyDemand int `validate:"min=0"`

	// ProducesEnergy marks power plants
	ProducesEnergy bool

	// EfficiencyBound is the damage-derived ceiling on achievable output, 1.0 means undamaged
	EfficiencyBound float64 `validate:"min=0,max=1"`

	// WorkerAllocated is written by the strategy
	WorkerAllocated int

	// EnergyAllocated is written by the strategy. For consumers it is the energy
	// received, for producers the energy actually produced.
	EnergyAllocated int

	// Owner receives the allocation at commit time
	Owner Owner
}

// Group is a bundle of profiles sharing one worker pool for one allocation pass
type Group struct {
	// Profiles in insertion order
	Profiles []*Profile `validate:"dive"`

	// AvailableWorkers is the shared worker budget for this group
	AvailableWorkers int `validate:"min=0"`

	// Strategy used to allocate this group
	Strategy Strategy `validate:"required"`
}

// Outcome reports what a strategy did to a group
type Outcome struct {
	// Strategy is the name of the strategy that was requested
	Strategy string

	// FellBack is true when MaxEfficiency broke a conservation property and
	// the group was recomputed with UniformDamageAware
	FellBack bool

	// Violations found after the final strategy ran (empty for a valid group)
	Violations []Violation

	WorkerDemand    int
	WorkerAllocated int
	EnergyDemand    int
	EnergyProduced  int
	EnergyConsumed  int
}

// WorkerShortage returns how many demanded workers went unallocated
func (o Outcome) WorkerShortage() int {
	return max(0, o.WorkerDemand-o.WorkerAllocated)
}

// EnergyShortage returns how much demanded energy went unallocated
func (o Outcome) EnergyShortage() int {
	return max(0, o.EnergyDemand-o.EnergyConsumed)
}

// Violation describes a broken conservation property
type Violation struct {
	// ProfileIndex is the offending profile, or -1 for group-wide properties
	ProfileIndex int
	Property     string
	Description  string
}

// IsConsumer returns true if the profile consumes energy
func (p *Profile) IsConsumer() bool {
	return !p.ProducesEnergy
}

func (p *Profile) reset() {
	p.WorkerAllocated = 0
	p.EnergyAllocated = 0
}
