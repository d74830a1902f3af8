package allocator

import (
	"math"
	"sort"
)

// epsilon absorbs floating point drift in the market loop
const epsilon = 1e-9

// MaxEfficiency approximates an economically efficient allocation by pricing
// energy in workers. Power plants are brought online cheapest first and their
// marginal price (workers per unit of energy) decides which factories are
// served first: a factory's cost per unit of output is 1 + price × E/W, so
// factories that need little energy per worker are preferred.
//
// It is a greedy heuristic, not an optimiser. Its result is checked against
// the conservation properties and replaced by UniformDamageAware if any of
// them is broken.
type MaxEfficiency struct{}

// marketStep is the heuristic whose result MaxEfficiency validates
var marketStep = allocateMaxEfficiency

func (MaxEfficiency) Name() string      { return StrategyMaxEfficiency }
func (MaxEfficiency) DamageAware() bool { return true }

func (MaxEfficiency) allocate(g *Group) Outcome {
	marketStep(g)

	if len(ValidateGroup(g, true)) == 0 {
		return summarize(g, StrategyMaxEfficiency)
	}

	allocateUniform(g, true)
	outcome := summarize(g, StrategyMaxEfficiency)
	outcome.FellBack = true
	return outcome
}

// powerPlant tracks the fractional assignment of one producer
type powerPlant struct {
	profile  *Profile
	price    float64 // workers per unit of energy
	capacity float64 // energy at the efficiency bound
	workers  float64
	energy   float64
}

// factory tracks the fractional assignment of one consumer
type factory struct {
	profile          *Profile
	workerNeed       float64
	energyNeed       float64
	workersPerEnergy float64
	workers          float64
	energy           float64
}

// rank is the factory's worker-equivalent cost per unit of output at the given energy price
func (f *factory) rank(price float64) float64 {
	if f.profile.WorkerDemand == 0 {
		return math.Inf(1)
	}
	return 1 + price*float64(f.profile.EnergyDemand)/float64(f.profile.WorkerDemand)
}

func (f *factory) satisfied() bool {
	return f.workerNeed <= epsilon && f.energyNeed <= epsilon
}

func (f *factory) assign(workers, energy float64) {
	f.workers += workers
	f.workerNeed = math.Max(0, f.workerNeed-workers)
	f.energy += energy
	f.energyNeed = math.Max(0, f.energyNeed-energy)
}

// market is the running state of one MaxEfficiency computation
type market struct {
	remainingWorkers float64
	freeEnergy       float64 // produced but not yet consumed
	openEnergy       float64 // obtainable from the open plant without switching on another
	price            float64 // marginal price of the open plant

	open      *powerPlant
	unopened  []*powerPlant
	plants    []*powerPlant
	consumers []*factory // every consumer, in profile order
	factories []*factory // consumers still competing for resources
}

func newMarket(g *Group) *market {
	m := &market{
		remainingWorkers: float64(g.AvailableWorkers),
	}

	for _, p := range g.Profiles {
		bound := p.EfficiencyBound

		if p.ProducesEnergy {
			plant := &powerPlant{
				profile:  p,
				capacity: float64(p.EnergyDemand) * bound,
			}
			m.plants = append(m.plants, plant)

			if plant.capacity <= epsilon {
				continue
			}

			// Unstaffed plants produce for free
			if p.WorkerDemand == 0 {
				plant.energy = plant.capacity
				m.freeEnergy += plant.capacity
				continue
			}

			plant.price = float64(p.WorkerDemand) / float64(p.EnergyDemand)
			m.unopened = append(m.unopened, plant)
			continue
		}

		f := &factory{
			profile:    p,
			workerNeed: float64(p.WorkerDemand) * bound,
			energyNeed: float64(p.EnergyDemand) * bound,
		}
		if p.EnergyDemand > 0 {
			f.workersPerEnergy = float64(p.WorkerDemand) / float64(p.EnergyDemand)
		}
		m.consumers = append(m.consumers, f)
		if !f.satisfied() {
			m.factories = append(m.factories, f)
		}
	}

	sort.SliceStable(m.unopened, func(i, j int) bool {
		return m.unopened[i].price < m.unopened[j].price
	})

	return m
}

// referencePrice is the price factories are ranked at: the open plant's, or
// the cheapest plant that could be opened next
func (m *market) referencePrice() float64 {
	if m.open != nil {
		return m.price
	}
	if len(m.unopened) > 0 {
		return m.unopened[0].price
	}
	return 0
}

// bestFactory returns the cheapest factory still needing resources.
// Ties go to the earlier profile.
func (m *market) bestFactory() *factory {
	price := m.referencePrice()

	var best *factory
	bestRank := math.Inf(1)
	for _, f := range m.factories {
		r := f.rank(price)
		if best == nil || r < bestRank {
			best = f
			bestRank = r
		}
	}
	return best
}

func (m *market) retire(f *factory) {
	for i, candidate := range m.factories {
		if candidate == f {
			m.factories = append(m.factories[:i], m.factories[i+1:]...)
			return
		}
	}
}

func (m *market) spendWorkers(workers float64) {
	m.remainingWorkers = math.Max(0, m.remainingWorkers-workers)
}

// serveWorkersOnly staffs a factory that needs no energy
func (m *market) serveWorkersOnly(f *factory) {
	workers := math.Min(f.workerNeed, m.remainingWorkers)
	if workers <= epsilon {
		m.retire(f)
		return
	}
	f.assign(workers, 0)
	m.spendWorkers(workers)
}

// serveFreeEnergy hands already produced energy to a factory along with the
// workers needed to use it
func (m *market) serveFreeEnergy(f *factory) {
	energy := math.Min(f.energyNeed, m.freeEnergy)
	if f.workersPerEnergy > 0 {
		energy = math.Min(energy, m.remainingWorkers/f.workersPerEnergy)
	}
	if energy <= epsilon {
		m.retire(f)
		return
	}

	workers := energy * f.workersPerEnergy
	f.assign(workers, energy)
	m.freeEnergy -= energy
	m.spendWorkers(workers)
}

// serveOpenPlant sizes the open plant and the factory together: every unit of
// energy costs price workers at the plant plus workersPerEnergy at the factory
func (m *market) serveOpenPlant(f *factory) {
	perEnergy := m.price + f.workersPerEnergy

	energy := math.Min(f.energyNeed, m.openEnergy)
	if perEnergy > 0 {
		energy = math.Min(energy, m.remainingWorkers/perEnergy)
	}
	if energy <= epsilon {
		m.retire(f)
		return
	}

	plantWorkers := energy * m.price
	m.open.workers += plantWorkers
	m.open.energy += energy
	m.openEnergy -= energy

	factoryWorkers := energy * f.workersPerEnergy
	f.assign(factoryWorkers, energy)

	m.spendWorkers(plantWorkers + factoryWorkers)
}

// openNextPlant switches on the cheapest unopened plant at half load.
// Returns false when no plant is left.
func (m *market) openNextPlant() bool {
	if len(m.unopened) == 0 {
		return false
	}

	plant := m.unopened[0]
	m.unopened = m.unopened[1:]

	energy := plant.capacity / 2
	workers := energy * plant.price
	if workers > m.remainingWorkers {
		workers = m.remainingWorkers
		energy = workers / plant.price
	}

	plant.workers += workers
	plant.energy += energy
	m.spendWorkers(workers)

	m.freeEnergy += energy
	m.openEnergy = plant.capacity - energy
	m.open = plant
	m.price = plant.price

	return true
}

// step performs one market action. Returns false when no improving move exists.
func (m *market) step() bool {
	f := m.bestFactory()
	if f == nil {
		return false
	}

	switch {
	case f.energyNeed <= epsilon:
		m.serveWorkersOnly(f)
	case m.freeEnergy > epsilon:
		m.serveFreeEnergy(f)
	case m.openEnergy > epsilon:
		m.serveOpenPlant(f)
	default:
		if !m.openNextPlant() {
			// No energy is left anywhere for this factory
			m.retire(f)
		}
	}

	if f.satisfied() {
		m.retire(f)
	}
	return true
}

// allocateMaxEfficiency runs the market loop and writes the integer results
// back onto the profiles
func allocateMaxEfficiency(g *Group) {
	allocateZero(g)

	m := newMarket(g)

	// Every step retires a factory, opens a plant or exhausts one balance,
	// so the loop is bounded; the cap only guards against float drift.
	maxSteps := 4 * (len(g.Profiles) + 2) * (len(g.Profiles) + 2)
	for i := 0; i < maxSteps; i++ {
		if !m.step() {
			break
		}
	}

	produced := 0
	for _, plant := range m.plants {
		p := plant.profile
		p.WorkerAllocated = min(p.WorkerDemand, int(math.Floor(plant.workers+epsilon)))
		p.EnergyAllocated = int(math.Floor(float64(p.EnergyDemand) * achievedEfficiency(p, p.EfficiencyBound)))
		produced += p.EnergyAllocated
	}

	// Consumers in profile order so rounding losses are deterministic
	remainingEnergy := produced
	for _, f := range m.consumers {
		p := f.profile
		p.WorkerAllocated = min(p.WorkerDemand, int(math.Floor(f.workers+epsilon)))
		energy := min(p.EnergyDemand, int(math.Floor(f.energy+epsilon)))
		energy = min(energy, remainingEnergy)
		p.EnergyAllocated = energy
		remainingEnergy -= energy
	}
}
