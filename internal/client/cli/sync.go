package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Sync pushes every entity now instead of waiting for the background push.
func (a *App) Sync(ctx context.Context) error {
	results, err := a.sync.PushAll(ctx)
	for _, entity := range models.Entities {
		r, ok := results[entity]
		if !ok {
			continue
		}
		fmt.Fprintf(a.out, "%-10s pushed %d of %d", entity, r.Pushed, r.Attempted)
		if r.Failed > 0 {
			fmt.Fprintf(a.out, ", %d failed", r.Failed)
		}
		fmt.Fprintln(a.out)
	}
	return err
}

// Pull re-reads one entity, or all of them, from the server.
func (a *App) Pull(ctx context.Context, args []string) error {
	entity := ""
	if len(args) > 0 {
		entity = args[0]
		if !slices.Contains(models.Entities, entity) {
			return fmt.Errorf("unknown entity %q, want one of %s", entity, strings.Join(models.Entities, ", "))
		}
	}
	if err := a.sync.Resync(ctx, entity); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "pull complete")
	return nil
}

func (a *App) Status(_ context.Context) error {
	fmt.Fprintf(a.out, "connection: %s\n", strings.Trim(a.getStatus(), "()"))
	states := a.sync.States()
	for _, entity := range models.Entities {
		if st, ok := states[entity]; ok {
			fmt.Fprintf(a.out, "%-10s %s\n", entity, st)
		}
	}
	return nil
}
