package orchestrator

import (
	"database/sql"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/fuelcost"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/names"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// NewReconcilers builds the four reconcilers over the local database.
func NewReconcilers(db *sql.DB, remote syncer.Remote, identity syncer.Identity, notifier syncer.Notifier, logger logging.Logger) []Syncer {
	return []Syncer{
		syncer.New(syncer.ExpensePolicy(), expenses.NewSQLiteRepository(db), remote, identity, notifier, logger),
		syncer.New(syncer.EngineerPolicy(), names.NewSQLiteRepository(db, names.TableEngineers), remote, identity, notifier, logger),
		syncer.New(syncer.ClientPolicy(), names.NewSQLiteRepository(db, names.TableClients), remote, identity, notifier, logger),
		syncer.New(syncer.FuelCostPolicy(), fuelcost.NewSQLiteRepository(db), remote, identity, notifier, logger),
	}
}
