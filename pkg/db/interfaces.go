package db

import "context"

// WorldStore defines the interface for planet and building operations
type WorldStore interface {
	GetPlanets(ctx context.Context) ([]Planet, error)
	GetBuildings(ctx context.Context) ([]Building, error)
	UpsertPlanets(ctx context.Context, planets []Planet) error
	UpsertBuildings(ctx context.Context, buildings []Building) error
}

// AllocationStore defines the interface for allocation history operations
type AllocationStore interface {
	GetAllocationPasses(ctx context.Context) ([]AllocationPass, error)
	GetAllocations(ctx context.Context, passID string) ([]Allocation, error)
	// InsertAllocationPass records a pass with its allocations and the
	// buildings it updated. Either all of it is stored or none of it.
	InsertAllocationPass(ctx context.Context, pass AllocationPass, allocations []Allocation, buildings []Building) error
}

// Database defines the interface for all database operations.
// Both postgres.DB and sqlite.DB implement this interface.
type Database interface {
	WorldStore
	AllocationStore
	Close() error
}
