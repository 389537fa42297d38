package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a stub.
type execIface interface {
	ListExpenses(ctx context.Context) error
	AddExpense(ctx context.Context) error
	EditExpense(ctx context.Context, args []string) error
	DeleteExpense(ctx context.Context, args []string) error
	PurgeExpenses(ctx context.Context) error

	ListNames(ctx context.Context, entity string) error
	AddName(ctx context.Context, entity string, args []string) error
	RenameName(ctx context.Context, entity string, args []string) error
	DeleteName(ctx context.Context, entity string, args []string) error

	ShowFuelCost(ctx context.Context) error
	SetFuelCost(ctx context.Context, args []string) error

	Sync(ctx context.Context) error
	Pull(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  expenses | ls                 list expenses
  add                           add an expense
  edit <id>                     edit an expense
  del <id>                      delete an expense
  purge                         drop deleted expenses that reached the server
  engineers | clients           list names
  addeng <name>                 add an engineer
  renameeng <id> <name>         rename an engineer
  deleng <name>                 delete an engineer
  addclient <name>              add a client
  renameclient <id> <name>      rename a client
  delclient <name>              delete a client
  fuel                          show fuel cost per km
  setfuel <cost>                set fuel cost per km
  sync                          push local changes now
  pull [entity]                 re-read everything from the server
  status                        show sync state
  exit | quit                   leave the program`

// runREPL reads commands line by line and dispatches them to a. It returns
// on EOF or on "exit"/"quit". Handler errors are reported and the loop
// carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("fs %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "expenses", "ls":
			err = a.ListExpenses(ctx)
		case "add":
			err = a.AddExpense(ctx)
		case "edit":
			err = a.EditExpense(ctx, args)
		case "del":
			err = a.DeleteExpense(ctx, args)
		case "purge":
			err = a.PurgeExpenses(ctx)

		case "engineers":
			err = a.ListNames(ctx, models.EntityEngineers)
		case "addeng":
			err = a.AddName(ctx, models.EntityEngineers, args)
		case "renameeng":
			err = a.RenameName(ctx, models.EntityEngineers, args)
		case "deleng":
			err = a.DeleteName(ctx, models.EntityEngineers, args)

		case "clients":
			err = a.ListNames(ctx, models.EntityClients)
		case "addclient":
			err = a.AddName(ctx, models.EntityClients, args)
		case "renameclient":
			err = a.RenameName(ctx, models.EntityClients, args)
		case "delclient":
			err = a.DeleteName(ctx, models.EntityClients, args)

		case "fuel":
			err = a.ShowFuelCost(ctx)
		case "setfuel":
			err = a.SetFuelCost(ctx, args)

		case "sync":
			err = a.Sync(ctx)
		case "pull":
			err = a.Pull(ctx, args)
		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
