package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/client/services"
)

func (a *App) nameService(entity string) (nameService, error) {
	s, ok := a.names[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	return s, nil
}

// joinArgs rebuilds a name that may contain spaces.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (a *App) ListNames(ctx context.Context, entity string) error {
	s, err := a.nameService(entity)
	if err != nil {
		return err
	}

	items, err := s.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(a.out, "no %s\n", entity)
		return nil
	}
	for _, n := range items {
		mark := ""
		if n.Dirty {
			mark = " *"
		}
		fmt.Fprintf(a.out, "%4d  %s%s\n", n.LocalID, n.Name, mark)
	}
	return nil
}

func (a *App) AddName(ctx context.Context, entity string, args []string) error {
	s, err := a.nameService(entity)
	if err != nil {
		return err
	}

	name := joinArgs(args)
	if name == "" {
		if name, err = GetSimpleText(a.reader, "Name", a.out); err != nil {
			return err
		}
	}

	row, err := s.Add(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %d: %s\n", entity, row.LocalID, row.Name)
	return nil
}

func (a *App) RenameName(ctx context.Context, entity string, args []string) error {
	s, err := a.nameService(entity)
	if err != nil {
		return err
	}

	id, err := ParseID(args)
	if err != nil {
		return err
	}
	name := joinArgs(args[1:])
	if name == "" {
		return errors.New("new name required")
	}

	row, err := s.Update(ctx, id, name)
	if errors.Is(err, services.ErrDuplicate) {
		fmt.Fprintf(a.out, "%q already exists\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %d: %s\n", entity, row.LocalID, row.Name)
	return nil
}

func (a *App) DeleteName(ctx context.Context, entity string, args []string) error {
	s, err := a.nameService(entity)
	if err != nil {
		return err
	}

	name := joinArgs(args)
	if name == "" {
		return errors.New("name required")
	}
	if err := s.SoftDeleteByName(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %q deleted\n", entity, name)
	return nil
}
