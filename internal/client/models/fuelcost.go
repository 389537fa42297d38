package models

// FuelCost is the global cost-per-km setting. Only one row is authoritative.
type FuelCost struct {
	SyncMeta
	Cost float64
}

// FuelCostKey is the well-known remote key of the singleton document.
const FuelCostKey = "global_fuel_cost"

const FieldFuelCostValue = "cost"
