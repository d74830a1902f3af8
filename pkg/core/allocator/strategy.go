package allocator

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy names as used in configuration and persisted planet settings
const (
	StrategyZero               = "zero"
	StrategyUniform            = "uniform"
	StrategyUniformDamageAware = "uniform_damage_aware"
	StrategyMaxEfficiency      = "max_efficiency"
)

// ErrUnknownStrategy is returned by ParseStrategy for names that match no strategy
var ErrUnknownStrategy = errors.New("unknown allocation strategy")

// Strategy distributes a group's worker pool and energy among its profiles.
//
// The interface is sealed: only the strategies in this package implement it,
// so every Strategy value is one of Zero, Uniform, UniformDamageAware or
// MaxEfficiency and dispatch can never fall through.
type Strategy interface {
	// Name returns the configuration name of the strategy
	Name() string

	// DamageAware reports whether allocations respect each profile's efficiency bound
	DamageAware() bool

	allocate(g *Group) Outcome
}

// Zero disables a settlement without touching its demand bookkeeping
type Zero struct{}

// Uniform splits workers proportionally to demand, then energy proportionally to unmet demand
type Uniform struct{}

// UniformDamageAware is Uniform with every demand capped by the profile's efficiency bound
type UniformDamageAware struct{}

func (Zero) Name() string               { return StrategyZero }
func (Uniform) Name() string            { return StrategyUniform }
func (UniformDamageAware) Name() string { return StrategyUniformDamageAware }

func (Zero) DamageAware() bool               { return false }
func (Uniform) DamageAware() bool            { return false }
func (UniformDamageAware) DamageAware() bool { return true }

func (Zero) allocate(g *Group) Outcome {
	allocateZero(g)
	return summarize(g, StrategyZero)
}

func (Uniform) allocate(g *Group) Outcome {
	allocateUniform(g, false)
	return summarize(g, StrategyUniform)
}

func (UniformDamageAware) allocate(g *Group) Outcome {
	allocateUniform(g, true)
	return summarize(g, StrategyUniformDamageAware)
}

// ParseStrategy resolves a configuration name to a Strategy.
// Names are matched case-insensitively; "-" and "_" are interchangeable.
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")

	switch normalized {
	case StrategyZero:
		return Zero{}, nil
	case StrategyUniform:
		return Uniform{}, nil
	case StrategyUniformDamageAware:
		return UniformDamageAware{}, nil
	case StrategyMaxEfficiency:
		return MaxEfficiency{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// StrategyNames lists every valid strategy name
func StrategyNames() []string {
	return []string{
		StrategyZero,
		StrategyUniform,
		StrategyUniformDamageAware,
		StrategyMaxEfficiency,
	}
}
