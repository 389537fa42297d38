package models

import "strings"

// Expense is one field-expense record.
type Expense struct {
	SyncMeta
	ExpenseFields
}

// ExpenseFields holds the business attributes of an expense.
type ExpenseFields struct {
	EngName       string
	Date          string
	Cost          string
	Category      string
	Type          string
	Client        string
	Status        string
	VehicleNo     string
	Description   string
	StartLocation string
	EndLocation   string
	Distance      string
	FuelCost      float64
	StartTime     string
	EndTime       string
	TimeConsumed  float64
}

// Expense document fields.
const (
	FieldEngName       = "engName"
	FieldDate          = "date"
	FieldCost          = "cost"
	FieldCategory      = "category"
	FieldType          = "type"
	FieldClient        = "client"
	FieldStatus        = "status"
	FieldVehicleNo     = "bikeNo"
	FieldDescription   = "description"
	FieldStartLocation = "starting"
	FieldEndLocation   = "ending"
	FieldDistance      = "distance"
	FieldFuelCost      = "fuelCost"
	FieldStartTime     = "startTime"
	FieldEndTime       = "endTime"
	FieldTimeConsumed  = "timeConsumed"
)

// SameEntry reports whether f and o describe the same expense as a user
// would see it. Engineer names compare case-insensitively.
func (f ExpenseFields) SameEntry(o ExpenseFields) bool {
	return strings.EqualFold(strings.TrimSpace(f.EngName), strings.TrimSpace(o.EngName)) &&
		f.Date == o.Date &&
		f.Cost == o.Cost &&
		f.Category == o.Category &&
		f.Type == o.Type &&
		f.Client == o.Client &&
		f.Status == o.Status &&
		f.VehicleNo == o.VehicleNo &&
		f.Description == o.Description &&
		f.StartLocation == o.StartLocation &&
		f.EndLocation == o.EndLocation &&
		f.Distance == o.Distance &&
		f.StartTime == o.StartTime &&
		f.EndTime == o.EndTime
}

// Document renders the business fields for the remote store.
func (f ExpenseFields) Document() Document {
	return Document{
		FieldEngName:       f.EngName,
		FieldDate:          f.Date,
		FieldCost:          f.Cost,
		FieldCategory:      f.Category,
		FieldType:          f.Type,
		FieldClient:        f.Client,
		FieldStatus:        f.Status,
		FieldVehicleNo:     f.VehicleNo,
		FieldDescription:   f.Description,
		FieldStartLocation: f.StartLocation,
		FieldEndLocation:   f.EndLocation,
		FieldDistance:      f.Distance,
		FieldFuelCost:      f.FuelCost,
		FieldStartTime:     f.StartTime,
		FieldEndTime:       f.EndTime,
		FieldTimeConsumed:  f.TimeConsumed,
	}
}

// ExpenseFieldsFromDocument is the inverse of ExpenseFields.Document.
func ExpenseFieldsFromDocument(d Document) ExpenseFields {
	return ExpenseFields{
		EngName:       d.String(FieldEngName),
		Date:          d.String(FieldDate),
		Cost:          d.String(FieldCost),
		Category:      d.String(FieldCategory),
		Type:          d.String(FieldType),
		Client:        d.String(FieldClient),
		Status:        d.String(FieldStatus),
		VehicleNo:     d.String(FieldVehicleNo),
		Description:   d.String(FieldDescription),
		StartLocation: d.String(FieldStartLocation),
		EndLocation:   d.String(FieldEndLocation),
		Distance:      d.String(FieldDistance),
		FuelCost:      d.Float(FieldFuelCost),
		StartTime:     d.String(FieldStartTime),
		EndTime:       d.String(FieldEndTime),
		TimeConsumed:  d.Float(FieldTimeConsumed),
	}
}
