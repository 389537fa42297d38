package names

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
)

const (
	TableEngineers = "engineers"
	TableClients   = "clients"
)

type Repository interface {
	syncer.Store[models.Named]

	ListActive(ctx context.Context) ([]models.Named, error)
	Get(ctx context.Context, localID int64) (*models.Named, error)
	// FindByName matches case-insensitively, preferring an active row.
	FindByName(ctx context.Context, name string) (*models.Named, error)
	Insert(ctx context.Context, name, updatedAt string) (int64, error)
	Undelete(ctx context.Context, localID int64, name, updatedAt string) error
	SoftDelete(ctx context.Context, localID int64, updatedAt string) error
}
