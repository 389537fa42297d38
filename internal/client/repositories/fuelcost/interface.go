// Package fuelcost stores the global fuel cost per km. The table may hold
// several rows from older versions; the newest one is authoritative.
package fuelcost

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
)

type Repository interface {
	syncer.Store[models.FuelCost]

	// Get returns the current setting or nil if none was ever stored.
	Get(ctx context.Context) (*models.FuelCost, error)
	// Save overwrites the current setting and marks it dirty.
	Save(ctx context.Context, cost float64, updatedAt string) error
}
