package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

func (a *App) ListExpenses(ctx context.Context) error {
	items, err := a.expenses.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no expenses")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tENGINEER\tCLIENT\tCATEGORY\tCOST\tFUEL\tHOURS\t")
	for _, e := range items {
		mark := ""
		if e.Dirty {
			mark = "*"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t\n",
			e.LocalID, mark, e.Date, e.EngName, e.Client, e.Category, e.Cost, e.FuelCost, e.TimeConsumed)
	}
	return w.Flush()
}

// promptExpense asks for every editable field, offering cur as the default.
func (a *App) promptExpense(cur models.ExpenseFields) (models.ExpenseFields, error) {
	out := cur
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Engineer", &out.EngName},
		{"Date (YYYY-MM-DD)", &out.Date},
		{"Cost", &out.Cost},
		{"Category", &out.Category},
		{"Type", &out.Type},
		{"Client", &out.Client},
		{"Status", &out.Status},
		{"Vehicle no", &out.VehicleNo},
		{"Description", &out.Description},
		{"Start location", &out.StartLocation},
		{"End location", &out.EndLocation},
		{"Distance (km)", &out.Distance},
		{"Start time (HH:MM)", &out.StartTime},
		{"End time (HH:MM)", &out.EndTime},
	}
	for _, f := range fields {
		v, err := GetTextOrDefault(a.reader, f.prompt, *f.dst, a.out)
		if err != nil {
			return models.ExpenseFields{}, err
		}
		*f.dst = v
	}
	return out, nil
}

func (a *App) AddExpense(ctx context.Context) error {
	f, err := a.promptExpense(models.ExpenseFields{})
	if err != nil {
		return err
	}

	id, err := a.expenses.Add(ctx, f)
	if errors.Is(err, services.ErrDuplicate) {
		fmt.Fprintln(a.out, "an identical expense already exists")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "expense %d added\n", id)
	return nil
}

func (a *App) findExpense(ctx context.Context, id int64) (models.Expense, error) {
	items, err := a.expenses.ListActive(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	for _, e := range items {
		if e.LocalID == id {
			return e, nil
		}
	}
	return models.Expense{}, common.ErrorNotFound
}

func (a *App) EditExpense(ctx context.Context, args []string) error {
	id, err := ParseID(args)
	if err != nil {
		return err
	}

	cur, err := a.findExpense(ctx, id)
	if err != nil {
		return err
	}

	f, err := a.promptExpense(cur.ExpenseFields)
	if err != nil {
		return err
	}

	if err := a.expenses.Update(ctx, id, f); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "expense %d updated\n", id)
	return nil
}

func (a *App) DeleteExpense(ctx context.Context, args []string) error {
	id, err := ParseID(args)
	if err != nil {
		return err
	}
	if err := a.expenses.SoftDelete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "expense %d deleted\n", id)
	return nil
}

func (a *App) PurgeExpenses(ctx context.Context) error {
	n, err := a.expenses.HardDeleteSynced(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d expenses purged\n", n)
	return nil
}
