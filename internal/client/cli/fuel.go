package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

func (a *App) ShowFuelCost(ctx context.Context) error {
	v, err := a.fuel.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "fuel cost per km: %.2f\n", v)
	return nil
}

func (a *App) SetFuelCost(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("cost required")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid cost %q", args[0])
	}
	if err := a.fuel.Set(ctx, v); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "fuel cost per km set to %.2f\n", v)
	return nil
}
