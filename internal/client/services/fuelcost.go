package services

import (
	"context"
	"database/sql"
	"math"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/fuelcost"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

type FuelCostService struct {
	base
	repo fuelcost.Repository
}

func NewFuelCostService(db *sql.DB, pusher PushRequester, notifier Notifier, logger logging.Logger) *FuelCostService {
	return &FuelCostService{
		base: newBase(db, pusher, notifier, logger.With("module", "fuel_cost_service")),
		repo: fuelcost.NewSQLiteRepository(db),
	}
}

// Get returns the current cost per km; 0 when none was ever set.
func (s *FuelCostService) Get(ctx context.Context) (float64, error) {
	fc, err := s.repo.Get(ctx)
	if err != nil {
		return 0, err
	}
	if fc == nil {
		return 0, nil
	}
	return fc.Cost, nil
}

func (s *FuelCostService) Set(ctx context.Context, cost float64) error {
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return ErrInvalidCost
	}

	if err := s.repo.Save(ctx, cost, s.timestamp()); err != nil {
		return common.LocalWriteError("save fuel cost", err)
	}

	s.logger.Info(ctx, "Fuel cost set", "cost", cost)
	s.changed(models.EntityFuelCost)
	return nil
}
