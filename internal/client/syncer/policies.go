package syncer

import (
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

var (
	errEmptyName  = errors.New("document has no name")
	errForeignKey = errors.New("unexpected document key")
)

// ExpensePolicy syncs expenses. Keys are assigned by the remote store.
func ExpensePolicy() Policy[models.Expense] {
	return Policy[models.Expense]{
		Entity:     models.EntityExpenses,
		Collection: models.CollectionExpenses,
		Meta:       func(e *models.Expense) *models.SyncMeta { return &e.SyncMeta },
		Encode:     func(e *models.Expense) models.Document { return e.ExpenseFields.Document() },
		Decode: func(_ string, doc models.Document) (models.Expense, error) {
			return models.Expense{ExpenseFields: models.ExpenseFieldsFromDocument(doc)}, nil
		},
	}
}

// EngineerPolicy syncs engineers keyed by name.
func EngineerPolicy() Policy[models.Named] {
	return namedPolicy(models.EntityEngineers, models.CollectionEngineers, models.FieldEngineerName)
}

// ClientPolicy syncs clients keyed by name.
func ClientPolicy() Policy[models.Named] {
	return namedPolicy(models.EntityClients, models.CollectionClients, models.FieldClientName)
}

func namedPolicy(entity, collection, field string) Policy[models.Named] {
	return Policy[models.Named]{
		Entity:     entity,
		Collection: collection,
		Meta:       func(n *models.Named) *models.SyncMeta { return &n.SyncMeta },
		Encode: func(n *models.Named) models.Document {
			return models.Document{field: n.Name}
		},
		Decode: func(key string, doc models.Document) (models.Named, error) {
			name := doc.String(field)
			if name == "" {
				name = doc.String(models.FieldLegacyName)
			}
			if name == "" {
				name = key
			}
			name = models.NormalizeName(name)
			if name == "" {
				return models.Named{}, errEmptyName
			}
			return models.Named{Name: name}, nil
		},
		NaturalKey: func(n *models.Named) string { return n.Name },
	}
}

// FuelCostPolicy syncs the singleton fuel cost document.
func FuelCostPolicy() Policy[models.FuelCost] {
	return Policy[models.FuelCost]{
		Entity:     models.EntityFuelCost,
		Collection: models.CollectionFuelCost,
		Meta:       func(f *models.FuelCost) *models.SyncMeta { return &f.SyncMeta },
		Encode: func(f *models.FuelCost) models.Document {
			return models.Document{models.FieldFuelCostValue: f.Cost}
		},
		Decode: func(key string, doc models.Document) (models.FuelCost, error) {
			if key != models.FuelCostKey {
				return models.FuelCost{}, errForeignKey
			}
			return models.FuelCost{Cost: doc.Float(models.FieldFuelCostValue)}, nil
		},
		NaturalKey: func(*models.FuelCost) string { return models.FuelCostKey },
	}
}
