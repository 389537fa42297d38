package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/names"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// NameService manages engineers or clients. Names are unique among active
// rows, ignoring case.
type NameService struct {
	base
	entity string
	table  string
}

func NewEngineerService(db *sql.DB, pusher PushRequester, notifier Notifier, logger logging.Logger) *NameService {
	return newNameService(db, models.EntityEngineers, names.TableEngineers, pusher, notifier, logger)
}

func NewClientService(db *sql.DB, pusher PushRequester, notifier Notifier, logger logging.Logger) *NameService {
	return newNameService(db, models.EntityClients, names.TableClients, pusher, notifier, logger)
}

func newNameService(db *sql.DB, entity, table string, pusher PushRequester, notifier Notifier, logger logging.Logger) *NameService {
	return &NameService{
		base:   newBase(db, pusher, notifier, logger.With("module", "name_service", "entity", entity)),
		entity: entity,
		table:  table,
	}
}

func (s *NameService) repo(db dbx.DBTX) names.Repository {
	return names.NewSQLiteRepository(db, s.table)
}

func (s *NameService) ListActive(ctx context.Context) ([]models.Named, error) {
	return s.repo(s.db).ListActive(ctx)
}

// add inserts name, revives a deleted row with that name, or returns the
// active row that already has it. The bool reports whether anything changed.
func (s *NameService) add(ctx context.Context, repo names.Repository, name string) (models.Named, bool, error) {
	existing, err := repo.FindByName(ctx, name)
	if err != nil {
		return models.Named{}, false, err
	}

	now := s.timestamp()

	switch {
	case existing != nil && !existing.Deleted:
		return *existing, false, nil
	case existing != nil:
		if err := repo.Undelete(ctx, existing.LocalID, name, now); err != nil {
			return models.Named{}, false, err
		}
		existing.Name, existing.Deleted, existing.Dirty, existing.UpdatedAt = name, false, true, now
		return *existing, true, nil
	}

	id, err := repo.Insert(ctx, name, now)
	if err != nil {
		return models.Named{}, false, err
	}
	return models.Named{SyncMeta: models.SyncMeta{LocalID: id, Dirty: true, UpdatedAt: now}, Name: name}, true, nil
}

// Add stores a name. Adding a name that is already active returns the
// existing row.
func (s *NameService) Add(ctx context.Context, name string) (models.Named, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return models.Named{}, ErrEmptyName
	}

	var (
		row     models.Named
		changed bool
	)
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		row, changed, err = s.add(ctx, s.repo(tx), name)
		return err
	})
	if err != nil {
		return models.Named{}, common.LocalWriteError("add "+s.entity, err)
	}

	if changed {
		s.logger.Info(ctx, "Name added", "local_id", row.LocalID)
		s.changed(s.entity)
	}
	return row, nil
}

// Update renames a row. The name is its remote key, so the old row is
// soft-deleted and the new name added in one transaction.
func (s *NameService) Update(ctx context.Context, localID int64, name string) (models.Named, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return models.Named{}, ErrEmptyName
	}

	var (
		row     models.Named
		changed bool
	)
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		cur, err := repo.Get(ctx, localID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Deleted {
			return fmt.Errorf("%s[%d]: %w", s.entity, localID, common.ErrorNotFound)
		}
		if cur.Name == name {
			row = *cur
			return nil
		}

		other, err := repo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if other != nil && !other.Deleted && other.LocalID != localID {
			return ErrDuplicate
		}

		if err := repo.SoftDelete(ctx, localID, s.timestamp()); err != nil {
			return err
		}
		row, changed, err = s.add(ctx, repo, name)
		return err
	})
	if errors.Is(err, ErrDuplicate) {
		return models.Named{}, err
	}
	if err != nil {
		return models.Named{}, common.LocalWriteError("rename "+s.entity, err)
	}

	if changed {
		s.changed(s.entity)
	}
	return row, nil
}

func (s *NameService) SoftDelete(ctx context.Context, localID int64) error {
	if err := s.repo(s.db).SoftDelete(ctx, localID, s.timestamp()); err != nil {
		return common.LocalWriteError("delete "+s.entity, err)
	}

	s.changed(s.entity)
	return nil
}

func (s *NameService) SoftDeleteByName(ctx context.Context, name string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		row, err := repo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if row == nil || row.Deleted {
			return fmt.Errorf("%s %q: %w", s.entity, name, common.ErrorNotFound)
		}
		return repo.SoftDelete(ctx, row.LocalID, s.timestamp())
	})
	if err != nil {
		return common.LocalWriteError("delete "+s.entity, err)
	}

	s.changed(s.entity)
	return nil
}
