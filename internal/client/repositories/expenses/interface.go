package expenses

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
)

type Repository interface {
	syncer.Store[models.Expense]

	ListActive(ctx context.Context) ([]models.Expense, error)
	Get(ctx context.Context, localID int64) (*models.Expense, error)
	Insert(ctx context.Context, f models.ExpenseFields, updatedAt string) (int64, error)
	Update(ctx context.Context, localID int64, f models.ExpenseFields, updatedAt string) error
	SoftDelete(ctx context.Context, localID int64, updatedAt string) error
	FindActiveDuplicate(ctx context.Context, f models.ExpenseFields) (*models.Expense, error)
	HardDeleteSynced(ctx context.Context) (int64, error)
}
