package allocator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOwner records the last allocation committed to it
type mockOwner struct {
	workers int
	energy  int
	calls   int
}

func (m *mockOwner) SetAllocation(workers, energy int) {
	m.workers = workers
	m.energy = energy
	m.calls++
}

func factoryProfile(workers, energy int) *Profile {
	return &Profile{WorkerDemand: workers, EnergyDemand: energy, EfficiencyBound: 1.0}
}

func plantProfile(workers, energy int) *Profile {
	return &Profile{WorkerDemand: workers, EnergyDemand: energy, ProducesEnergy: true, EfficiencyBound: 1.0}
}

func damaged(p *Profile, bound float64) *Profile {
	p.EfficiencyBound = bound
	return p
}

func mustGroup(t *testing.T, strategy Strategy, available int, profiles ...*Profile) *Group {
	t.Helper()
	g, err := NewGroup(profiles, available, strategy)
	require.NoError(t, err)
	return g
}

func workerAllocations(g *Group) []int {
	result := make([]int, len(g.Profiles))
	for i, p := range g.Profiles {
		result[i] = p.WorkerAllocated
	}
	return result
}

func energyAllocations(g *Group) []int {
	result := make([]int, len(g.Profiles))
	for i, p := range g.Profiles {
		result[i] = p.EnergyAllocated
	}
	return result
}

func TestUniform_ExampleScenario(t *testing.T) {
	g := mustGroup(t, Uniform{}, 90, factoryProfile(100, 0), factoryProfile(50, 0))

	outcome := g.Allocate()

	assert.Equal(t, []int{60, 30}, workerAllocations(g))
	assert.Equal(t, 90, outcome.WorkerAllocated)
	assert.Equal(t, 60, outcome.WorkerShortage())
	assert.Empty(t, outcome.Violations)
}

func TestUniform_FullSatisfactionBelowCapacity(t *testing.T) {
	g := mustGroup(t, Uniform{}, 100, factoryProfile(10, 0), factoryProfile(20, 0), factoryProfile(30, 0))

	g.Allocate()

	assert.Equal(t, []int{10, 20, 30}, workerAllocations(g), "Every demand should be met exactly")
}

func TestUniform_ZeroDemandOverwritesStaleAllocations(t *testing.T) {
	stale := factoryProfile(0, 10)
	stale.WorkerAllocated = 7
	stale.EnergyAllocated = 3
	g := mustGroup(t, Uniform{}, 50, stale, plantProfile(0, 0))

	g.Allocate()

	assert.Equal(t, []int{0, 0}, workerAllocations(g))
	assert.Equal(t, []int{0, 0}, energyAllocations(g))
}

func TestUniform_DistributesEnergyProportionally(t *testing.T) {
	g := mustGroup(t, Uniform{}, 50,
		plantProfile(10, 100),
		factoryProfile(20, 80),
		factoryProfile(20, 120),
	)

	outcome := g.Allocate()

	assert.Equal(t, []int{10, 20, 20}, workerAllocations(g))
	// Plant produces 100, demand is 200 so every consumer gets half
	assert.Equal(t, []int{100, 40, 60}, energyAllocations(g))
	assert.Equal(t, 100, outcome.EnergyProduced)
	assert.Equal(t, 100, outcome.EnergyConsumed)
	assert.Equal(t, 100, outcome.EnergyShortage())
}

func TestUniform_UnderstaffedPlantProducesLess(t *testing.T) {
	g := mustGroup(t, Uniform{}, 20,
		plantProfile(10, 100),
		factoryProfile(30, 100),
	)

	g.Allocate()

	assert.Equal(t, []int{5, 15}, workerAllocations(g))
	assert.Equal(t, []int{50, 50}, energyAllocations(g))
}

func TestUniform_UnstaffedPlantRunsAtFullCapacity(t *testing.T) {
	g := mustGroup(t, Uniform{}, 10,
		plantProfile(0, 40),
		factoryProfile(10, 40),
	)

	g.Allocate()

	assert.Equal(t, []int{0, 10}, workerAllocations(g))
	assert.Equal(t, []int{40, 40}, energyAllocations(g))
}

func TestUniform_RoundingDriftLandsOnLastProfiles(t *testing.T) {
	// Target efficiency is 2/3, each profile rounds up to 1 until the pool runs dry
	g := mustGroup(t, Uniform{}, 2, factoryProfile(1, 0), factoryProfile(1, 0), factoryProfile(1, 0))

	g.Allocate()

	assert.Equal(t, []int{1, 1, 0}, workerAllocations(g))
}

func TestUniform_IgnoresEfficiencyBound(t *testing.T) {
	g := mustGroup(t, Uniform{}, 100, damaged(factoryProfile(100, 0), 0.2))

	g.Allocate()

	assert.Equal(t, []int{100}, workerAllocations(g))
}

func TestUniformDamageAware_ExampleScenario(t *testing.T) {
	g := mustGroup(t, UniformDamageAware{}, 90,
		damaged(factoryProfile(100, 0), 0.5),
		factoryProfile(50, 0),
	)

	outcome := g.Allocate()

	assert.Equal(t, 50, g.Profiles[0].WorkerAllocated, "Damaged building should be capped at its structural ceiling")
	assert.Equal(t, 40, g.Profiles[1].WorkerAllocated, "Second building takes what is left of the pool")
	assert.Empty(t, outcome.Violations)
}

func TestUniformDamageAware_CeilingHoldsWithSurplus(t *testing.T) {
	g := mustGroup(t, UniformDamageAware{}, 1000,
		damaged(factoryProfile(100, 0), 0.3),
		damaged(factoryProfile(10, 0), 0.0),
	)

	g.Allocate()

	assert.Equal(t, []int{30, 0}, workerAllocations(g))
}

func TestUniformDamageAware_DamagedPlantProducesLess(t *testing.T) {
	g := mustGroup(t, UniformDamageAware{}, 100,
		damaged(plantProfile(10, 100), 0.5),
		factoryProfile(10, 100),
	)

	g.Allocate()

	assert.Equal(t, []int{5, 10}, workerAllocations(g))
	assert.Equal(t, []int{50, 50}, energyAllocations(g))
}

func TestUniform_NoWorkerDemandMeansNoEnergy(t *testing.T) {
	stale := factoryProfile(0, 40)
	stale.EnergyAllocated = 12
	g := mustGroup(t, Uniform{}, 10,
		plantProfile(0, 40),
		stale,
	)

	outcome := g.Allocate()

	// Unlike TestUniform_UnstaffedPlantRunsAtFullCapacity, nothing in the
	// group asks for workers, so the energy phase never runs
	assert.Equal(t, []int{0, 0}, workerAllocations(g))
	assert.Equal(t, []int{0, 0}, energyAllocations(g))
	assert.Equal(t, 0, outcome.EnergyProduced)
	assert.Empty(t, outcome.Violations)
}

func TestUniformDamageAware_AllBoundsZero(t *testing.T) {
	g := mustGroup(t, UniformDamageAware{}, 100,
		damaged(factoryProfile(10, 10), 0),
		damaged(plantProfile(10, 10), 0),
	)

	g.Allocate()

	assert.Equal(t, []int{0, 0}, workerAllocations(g))
	assert.Equal(t, []int{0, 0}, energyAllocations(g))
}

func TestZero_ClearsEverything(t *testing.T) {
	profiles := []*Profile{
		{WorkerDemand: 10, EnergyDemand: 5, EfficiencyBound: 1, WorkerAllocated: 9, EnergyAllocated: 4},
		{WorkerDemand: 3, EnergyDemand: 50, ProducesEnergy: true, EfficiencyBound: 0.5, WorkerAllocated: 3, EnergyAllocated: 25},
	}
	g := mustGroup(t, Zero{}, 100, profiles...)

	outcome := g.Allocate()

	for i, p := range g.Profiles {
		assert.Equal(t, 0, p.WorkerAllocated, "profile %d workers", i)
		assert.Equal(t, 0, p.EnergyAllocated, "profile %d energy", i)
		assert.Equal(t, profiles[i].WorkerDemand, p.WorkerDemand, "demand bookkeeping must be untouched")
	}
	assert.Equal(t, StrategyZero, outcome.Strategy)
	assert.Equal(t, 13, outcome.WorkerDemand)
}

func TestMaxEfficiency_WorkerOnlyFactoriesInProfileOrder(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 25, factoryProfile(10, 0), factoryProfile(20, 0))

	outcome := g.Allocate()

	assert.Equal(t, []int{10, 15}, workerAllocations(g))
	assert.False(t, outcome.FellBack)
	assert.Empty(t, outcome.Violations)
}

func TestMaxEfficiency_SatisfiesDemandWhenWorkersAreAmple(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 100,
		plantProfile(10, 100),
		factoryProfile(20, 100),
	)

	outcome := g.Allocate()

	assert.Equal(t, []int{10, 20}, workerAllocations(g))
	assert.Equal(t, []int{100, 100}, energyAllocations(g))
	assert.False(t, outcome.FellBack)
	assert.Equal(t, 70, g.AvailableWorkers-outcome.WorkerAllocated, "Spare workers stay in the pool")
}

func TestMaxEfficiency_PrefersLowEnergyIntensity(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 12,
		plantProfile(10, 100),
		factoryProfile(10, 100), // energy hungry
		factoryProfile(10, 10),  // energy light
	)

	outcome := g.Allocate()

	// The plant is opened at half load, the light factory gets every remaining worker
	assert.Equal(t, []int{5, 0, 7}, workerAllocations(g))
	assert.Equal(t, []int{50, 0, 7}, energyAllocations(g))
	assert.False(t, outcome.FellBack)
	assert.Empty(t, outcome.Violations)
}

func TestMaxEfficiency_RespectsDamageCeiling(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 1000,
		damaged(plantProfile(10, 100), 0.5),
		damaged(factoryProfile(40, 100), 0.25),
	)

	outcome := g.Allocate()

	assert.LessOrEqual(t, g.Profiles[0].WorkerAllocated, 5)
	assert.LessOrEqual(t, g.Profiles[1].WorkerAllocated, 10)
	assert.LessOrEqual(t, g.Profiles[1].EnergyAllocated, g.Profiles[0].EnergyAllocated)
	assert.Empty(t, outcome.Violations)
}

func TestMaxEfficiency_NoWorkers(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 0, plantProfile(10, 100), factoryProfile(10, 10))

	outcome := g.Allocate()

	assert.Equal(t, []int{0, 0}, workerAllocations(g))
	assert.Equal(t, []int{0, 0}, energyAllocations(g))
	assert.Empty(t, outcome.Violations)
}

func TestMaxEfficiency_FallsBackWhenMarketResultIsInvalid(t *testing.T) {
	original := marketStep
	t.Cleanup(func() { marketStep = original })
	marketStep = func(g *Group) {
		original(g)
		// Overstaff the first profile beyond its demand
		g.Profiles[0].WorkerAllocated = g.Profiles[0].WorkerDemand + 5
	}

	g := mustGroup(t, MaxEfficiency{}, 40,
		damaged(plantProfile(10, 100), 0.8),
		factoryProfile(20, 60),
		factoryProfile(30, 90),
	)
	reference := g.Clone()
	reference.Strategy = UniformDamageAware{}

	outcome := g.Allocate()
	expected := reference.Allocate()

	assert.True(t, outcome.FellBack)
	assert.Equal(t, StrategyMaxEfficiency, outcome.Strategy)
	assert.Empty(t, outcome.Violations)
	assert.Equal(t, workerAllocations(reference), workerAllocations(g))
	assert.Equal(t, energyAllocations(reference), energyAllocations(g))
	assert.Equal(t, expected.WorkerAllocated, outcome.WorkerAllocated)
	assert.Equal(t, expected.EnergyConsumed, outcome.EnergyConsumed)
}

func TestMaxEfficiency_EmptyGroup(t *testing.T) {
	g := mustGroup(t, MaxEfficiency{}, 10)

	outcome := g.Allocate()

	assert.Equal(t, 0, outcome.WorkerAllocated)
	assert.False(t, outcome.FellBack)
}

func TestStrategies_AreDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, strategy := range []Strategy{Zero{}, Uniform{}, UniformDamageAware{}, MaxEfficiency{}} {
		for i := 0; i < 50; i++ {
			first := randomGroup(rng, strategy)
			second := first.Clone()

			first.Allocate()
			second.Allocate()

			assert.Equal(t, workerAllocations(first), workerAllocations(second), "%s workers", strategy.Name())
			assert.Equal(t, energyAllocations(first), energyAllocations(second), "%s energy", strategy.Name())
		}
	}
}

func TestStrategies_ConservationProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, strategy := range []Strategy{Zero{}, Uniform{}, UniformDamageAware{}, MaxEfficiency{}} {
		for i := 0; i < 300; i++ {
			g := randomGroup(rng, strategy)

			outcome := g.Allocate()

			require.Empty(t, outcome.Violations, "%s broke conservation on group %d", strategy.Name(), i)
			assert.LessOrEqual(t, outcome.WorkerAllocated, g.AvailableWorkers)

			if strategy.DamageAware() {
				for _, p := range g.Profiles {
					ceiling := int(math.Round(float64(p.WorkerDemand) * p.EfficiencyBound))
					assert.LessOrEqual(t, p.WorkerAllocated, ceiling)
				}
			}
		}
	}
}

func TestUniform_FullSatisfactionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 200; i++ {
		g := randomGroup(rng, Uniform{})
		total := 0
		for _, p := range g.Profiles {
			total += p.WorkerDemand
		}
		g.AvailableWorkers = total + rng.Intn(20)

		g.Allocate()

		for j, p := range g.Profiles {
			assert.Equal(t, p.WorkerDemand, p.WorkerAllocated, "group %d profile %d", i, j)
		}
	}
}

func TestCommit_CopiesAllocationsToOwners(t *testing.T) {
	first := &mockOwner{}
	second := &mockOwner{}
	g := mustGroup(t, Uniform{}, 90,
		&Profile{WorkerDemand: 100, EfficiencyBound: 1, Owner: first},
		&Profile{WorkerDemand: 50, EfficiencyBound: 1, Owner: second},
		&Profile{WorkerDemand: 0, EfficiencyBound: 1},
	)

	g.Allocate()
	committed := g.Commit()

	assert.Equal(t, 2, committed)
	assert.Equal(t, 60, first.workers)
	assert.Equal(t, 30, second.workers)
	assert.Equal(t, 1, first.calls)
}

func TestClone_IsIndependent(t *testing.T) {
	g := mustGroup(t, Uniform{}, 10, factoryProfile(10, 0))

	clone := g.Clone()
	clone.Allocate()

	assert.Equal(t, 0, g.Profiles[0].WorkerAllocated)
	assert.Equal(t, 10, clone.Profiles[0].WorkerAllocated)
}

// randomGroup builds a group with a mix of producers, consumers and damage levels
func randomGroup(rng *rand.Rand, strategy Strategy) *Group {
	bounds := []float64{0, 0.25, 0.5, 0.8, 1, 1, 1}

	count := rng.Intn(8)
	profiles := make([]*Profile, count)
	for i := range profiles {
		bound := bounds[rng.Intn(len(bounds))]
		if rng.Intn(4) == 0 {
			bound = rng.Float64()
		}
		profiles[i] = &Profile{
			WorkerDemand:    rng.Intn(100),
			EnergyDemand:    rng.Intn(200),
			ProducesEnergy:  rng.Intn(3) == 0,
			EfficiencyBound: bound,
			WorkerAllocated: rng.Intn(50), // stale values must be overwritten
			EnergyAllocated: rng.Intn(50),
		}
	}

	return &Group{
		Profiles:         profiles,
		AvailableWorkers: rng.Intn(300),
		Strategy:         strategy,
	}
}
