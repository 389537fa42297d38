package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/fuelcost"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

type ExpenseService struct {
	base
}

func NewExpenseService(db *sql.DB, pusher PushRequester, notifier Notifier, logger logging.Logger) *ExpenseService {
	return &ExpenseService{base: newBase(db, pusher, notifier, logger.With("module", "expense_service"))}
}

func (s *ExpenseService) repo(db dbx.DBTX) expenses.Repository {
	return expenses.NewSQLiteRepository(db)
}

func (s *ExpenseService) ListActive(ctx context.Context) ([]models.Expense, error) {
	return s.repo(s.db).ListActive(ctx)
}

// withComputed fills FuelCost and TimeConsumed from the current fuel setting
// and the entered times.
func withComputed(ctx context.Context, tx dbx.DBTX, f models.ExpenseFields) (models.ExpenseFields, error) {
	fuel, err := fuelcost.NewSQLiteRepository(tx).Get(ctx)
	if err != nil {
		return f, err
	}
	perKm := 0.0
	if fuel != nil {
		perKm = fuel.Cost
	}
	f.EngName = models.NormalizeName(f.EngName)
	f.FuelCost = models.FuelCostFor(perKm, f.Distance)
	f.TimeConsumed = models.HoursBetween(f.StartTime, f.EndTime)
	return f, nil
}

// Add stores a new expense. An active expense with the same visible fields
// yields ErrDuplicate.
func (s *ExpenseService) Add(ctx context.Context, f models.ExpenseFields) (int64, error) {
	var id int64

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		f, err := withComputed(ctx, tx, f)
		if err != nil {
			return err
		}

		repo := s.repo(tx)
		dup, err := repo.FindActiveDuplicate(ctx, f)
		if err != nil {
			return err
		}
		if dup != nil {
			return ErrDuplicate
		}

		id, err = repo.Insert(ctx, f, s.timestamp())
		return err
	})
	if errors.Is(err, ErrDuplicate) {
		return 0, err
	}
	if err != nil {
		return 0, common.LocalWriteError("add expense", err)
	}

	s.logger.Info(ctx, "Expense added", "local_id", id)
	s.changed(models.EntityExpenses)
	return id, nil
}

func (s *ExpenseService) Update(ctx context.Context, localID int64, f models.ExpenseFields) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		f, err := withComputed(ctx, tx, f)
		if err != nil {
			return err
		}
		return s.repo(tx).Update(ctx, localID, f, s.timestamp())
	})
	if err != nil {
		return common.LocalWriteError("update expense", err)
	}

	s.changed(models.EntityExpenses)
	return nil
}

func (s *ExpenseService) SoftDelete(ctx context.Context, localID int64) error {
	if err := s.repo(s.db).SoftDelete(ctx, localID, s.timestamp()); err != nil {
		return common.LocalWriteError("delete expense", err)
	}

	s.changed(models.EntityExpenses)
	return nil
}

// HardDeleteSynced purges deleted expenses whose deletion reached the
// remote store. It does not trigger a push.
func (s *ExpenseService) HardDeleteSynced(ctx context.Context) (int64, error) {
	n, err := s.repo(s.db).HardDeleteSynced(ctx)
	if err != nil {
		return 0, common.LocalWriteError("purge expenses", err)
	}
	if n > 0 {
		s.logger.Info(ctx, "Purged synced deletions", "count", n)
	}
	return n, nil
}
