package models

// Entity names the four synced record types. The same names are used in
// logs and change notifications.
const (
	EntityExpenses  = "expenses"
	EntityEngineers = "engineers"
	EntityClients   = "clients"
	EntityFuelCost  = "fuel_cost"
)

// Remote collections, one per entity.
const (
	CollectionExpenses  = "expenses"
	CollectionEngineers = "engineers"
	CollectionClients   = "clients"
	CollectionFuelCost  = "fuel_settings"
)

// Entities lists every entity in a stable order.
var Entities = []string{EntityExpenses, EntityEngineers, EntityClients, EntityFuelCost}
