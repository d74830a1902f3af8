package db

import "time"

// Planet represents a database planet record
type Planet struct {
	ID               string `gorm:"column:id;primaryKey" json:"id"`
	Name             string `gorm:"column:name;not null" json:"name"`
	AvailableWorkers int    `gorm:"column:available_workers;not null" json:"availableWorkers"`
	Strategy         string `gorm:"column:strategy" json:"strategy,omitempty"`
	Paused           bool   `gorm:"column:paused;not null" json:"paused"`
}

func (Planet) TableName() string { return "planet" }

// Building represents a database building record
type Building struct {
	ID                string  `gorm:"column:id;primaryKey" json:"id"`
	PlanetID          string  `gorm:"column:planet_id;index;not null" json:"planetId"`
	Name              string  `gorm:"column:name;not null" json:"name"`
	Kind              string  `gorm:"column:kind;not null" json:"kind"`
	WorkerDemand      int     `gorm:"column:worker_demand;not null" json:"workerDemand"`
	EnergyDemand      int     `gorm:"column:energy_demand;not null" json:"energyDemand"`
	Damage            float64 `gorm:"column:damage;not null" json:"damage"`
	UnderConstruction bool    `gorm:"column:under_construction;not null" json:"underConstruction"`
	Active            bool    `gorm:"column:active;not null" json:"active"`
	WorkerAllocated   int     `gorm:"column:worker_allocated;not null" json:"workerAllocated"`
	EnergyAllocated   int     `gorm:"column:energy_allocated;not null" json:"energyAllocated"`
}

func (Building) TableName() string { return "building" }

// AllocationPass represents one allocation run over every planet
type AllocationPass struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Day       string    `gorm:"column:day;not null"` // Date format
	DryRun    bool      `gorm:"column:dry_run;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (AllocationPass) TableName() string { return "allocation_pass" }

// Allocation represents the result for one building in a pass
type Allocation struct {
	ID              string `gorm:"column:id;primaryKey"`
	PassID          string `gorm:"column:pass_id;index;not null"`
	PlanetID        string `gorm:"column:planet_id;not null"`
	BuildingID      string `gorm:"column:building_id;not null"`
	Strategy        string `gorm:"column:strategy;not null"`
	FellBack        bool   `gorm:"column:fell_back;not null"`
	WorkerDemand    int    `gorm:"column:worker_demand;not null"`
	WorkerAllocated int    `gorm:"column:worker_allocated;not null"`
	EnergyDemand    int    `gorm:"column:energy_demand;not null"`
	EnergyAllocated int    `gorm:"column:energy_allocated;not null"`
}

func (Allocation) TableName() string { return "allocation" }
