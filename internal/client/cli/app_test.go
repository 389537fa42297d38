package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/notify"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpenses struct {
	items   []models.Expense
	added   []models.ExpenseFields
	updated map[int64]models.ExpenseFields
	deleted []int64
	addErr  error
}

func (f *fakeExpenses) ListActive(context.Context) ([]models.Expense, error) { return f.items, nil }
func (f *fakeExpenses) Add(_ context.Context, e models.ExpenseFields) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.added = append(f.added, e)
	return int64(len(f.added)), nil
}
func (f *fakeExpenses) Update(_ context.Context, id int64, e models.ExpenseFields) error {
	if f.updated == nil {
		f.updated = map[int64]models.ExpenseFields{}
	}
	f.updated[id] = e
	return nil
}
func (f *fakeExpenses) SoftDelete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeExpenses) HardDeleteSynced(context.Context) (int64, error) { return 2, nil }

type fakeNames struct {
	items   []models.Named
	added   []string
	renamed map[int64]string
	deleted []string
	err     error
}

func (f *fakeNames) ListActive(context.Context) ([]models.Named, error) { return f.items, nil }
func (f *fakeNames) Add(_ context.Context, name string) (models.Named, error) {
	f.added = append(f.added, name)
	return models.Named{SyncMeta: models.SyncMeta{LocalID: 7}, Name: name}, nil
}
func (f *fakeNames) Update(_ context.Context, id int64, name string) (models.Named, error) {
	if f.err != nil {
		return models.Named{}, f.err
	}
	if f.renamed == nil {
		f.renamed = map[int64]string{}
	}
	f.renamed[id] = name
	return models.Named{SyncMeta: models.SyncMeta{LocalID: id + 10}, Name: name}, nil
}
func (f *fakeNames) SoftDeleteByName(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return f.err
}

type fakeFuel struct{ cost float64 }

func (f *fakeFuel) Get(context.Context) (float64, error) { return f.cost, nil }
func (f *fakeFuel) Set(_ context.Context, v float64) error {
	if v < 0 {
		return services.ErrInvalidCost
	}
	f.cost = v
	return nil
}

type fakeSync struct {
	resynced []string
	pushErr  error
}

func (f *fakeSync) PushAll(context.Context) (map[string]syncer.PushResult, error) {
	return map[string]syncer.PushResult{
		models.EntityExpenses: {Attempted: 3, Pushed: 2, Failed: 1},
		models.EntityClients:  {Attempted: 1, Pushed: 1},
	}, f.pushErr
}
func (f *fakeSync) Resync(_ context.Context, entity string) error {
	f.resynced = append(f.resynced, entity)
	return nil
}
func (f *fakeSync) States() map[string]syncer.State {
	return map[string]syncer.State{
		models.EntityExpenses: syncer.StateListening,
		models.EntityFuelCost: syncer.StateSuspended,
	}
}

type fakeOnline bool

func (f fakeOnline) IsOnline() bool { return bool(f) }

type testApp struct {
	*App
	out       *bytes.Buffer
	expenses  *fakeExpenses
	engineers *fakeNames
	clients   *fakeNames
	fuel      *fakeFuel
	sync      *fakeSync
}

func newTestApp(input string) *testApp {
	ta := &testApp{
		out:       &bytes.Buffer{},
		expenses:  &fakeExpenses{},
		engineers: &fakeNames{},
		clients:   &fakeNames{},
		fuel:      &fakeFuel{},
		sync:      &fakeSync{},
	}
	ta.App = &App{
		expenses: ta.expenses,
		names: map[string]nameService{
			models.EntityEngineers: ta.engineers,
			models.EntityClients:   ta.clients,
		},
		fuel:   ta.fuel,
		sync:   ta.sync,
		online: fakeOnline(true),
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    ta.out,
	}
	return ta
}

func TestApp_AddExpensePromptsEveryField(t *testing.T) {
	input := strings.Join([]string{
		"Ann", "2024-03-01", "120", "Travel", "Site", "Acme", "Open", "KA-01",
		"visit", "Depot", "Plant", "42", "09:00", "11:30",
	}, "\n") + "\n"
	ta := newTestApp(input)

	require.NoError(t, ta.AddExpense(context.Background()))

	require.Len(t, ta.expenses.added, 1)
	got := ta.expenses.added[0]
	assert.Equal(t, "Ann", got.EngName)
	assert.Equal(t, "Acme", got.Client)
	assert.Equal(t, "42", got.Distance)
	assert.Equal(t, "11:30", got.EndTime)
	assert.Contains(t, ta.out.String(), "expense 1 added")
}

func TestApp_AddExpenseDuplicate(t *testing.T) {
	ta := newTestApp(strings.Repeat("x\n", 14))
	ta.expenses.addErr = services.ErrDuplicate

	require.NoError(t, ta.AddExpense(context.Background()))
	assert.Contains(t, ta.out.String(), "already exists")
}

func TestApp_EditExpenseKeepsDefaults(t *testing.T) {
	ta := newTestApp(strings.Repeat("\n", 2) + "150\n" + strings.Repeat("\n", 11))
	ta.expenses.items = []models.Expense{{
		SyncMeta:      models.SyncMeta{LocalID: 5},
		ExpenseFields: models.ExpenseFields{EngName: "Ann", Date: "2024-03-01", Cost: "100", Client: "Acme"},
	}}

	require.NoError(t, ta.EditExpense(context.Background(), []string{"5"}))

	got := ta.expenses.updated[5]
	assert.Equal(t, "Ann", got.EngName)
	assert.Equal(t, "150", got.Cost)
	assert.Equal(t, "Acme", got.Client)

	err := ta.EditExpense(context.Background(), []string{"9"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApp_ListExpenses(t *testing.T) {
	ta := newTestApp("")
	require.NoError(t, ta.ListExpenses(context.Background()))
	assert.Contains(t, ta.out.String(), "no expenses")

	ta.out.Reset()
	ta.expenses.items = []models.Expense{{
		SyncMeta:      models.SyncMeta{LocalID: 1, Dirty: true},
		ExpenseFields: models.ExpenseFields{EngName: "Ann", FuelCost: 21, TimeConsumed: 2.5},
	}}
	require.NoError(t, ta.ListExpenses(context.Background()))
	assert.Contains(t, ta.out.String(), "1*")
	assert.Contains(t, ta.out.String(), "21.00")
	assert.Contains(t, ta.out.String(), "2.50")
}

func TestApp_DeleteAndPurgeExpenses(t *testing.T) {
	ta := newTestApp("")

	require.Error(t, ta.DeleteExpense(context.Background(), nil))
	require.NoError(t, ta.DeleteExpense(context.Background(), []string{"3"}))
	assert.Equal(t, []int64{3}, ta.expenses.deleted)

	require.NoError(t, ta.PurgeExpenses(context.Background()))
	assert.Contains(t, ta.out.String(), "2 expenses purged")
}

func TestApp_NameCommands(t *testing.T) {
	ta := newTestApp("Globex\n")
	ctx := context.Background()

	require.NoError(t, ta.AddName(ctx, models.EntityEngineers, []string{"Ann", "Lee"}))
	assert.Equal(t, []string{"Ann Lee"}, ta.engineers.added)

	require.NoError(t, ta.AddName(ctx, models.EntityClients, nil))
	assert.Equal(t, []string{"Globex"}, ta.clients.added)

	require.NoError(t, ta.RenameName(ctx, models.EntityClients, []string{"4", "Acme", "Ltd"}))
	assert.Equal(t, "Acme Ltd", ta.clients.renamed[4])

	require.Error(t, ta.RenameName(ctx, models.EntityClients, []string{"4"}))

	require.NoError(t, ta.DeleteName(ctx, models.EntityEngineers, []string{"Ann", "Lee"}))
	assert.Equal(t, []string{"Ann Lee"}, ta.engineers.deleted)

	require.Error(t, ta.DeleteName(ctx, models.EntityEngineers, nil))
	require.Error(t, ta.ListNames(ctx, "vehicles"))
}

func TestApp_RenameDuplicate(t *testing.T) {
	ta := newTestApp("")
	ta.engineers.err = services.ErrDuplicate

	require.NoError(t, ta.RenameName(context.Background(), models.EntityEngineers, []string{"1", "Bob"}))
	assert.Contains(t, ta.out.String(), `"Bob" already exists`)
}

func TestApp_ListNames(t *testing.T) {
	ta := newTestApp("")
	ta.clients.items = []models.Named{
		{SyncMeta: models.SyncMeta{LocalID: 1}, Name: "Acme"},
		{SyncMeta: models.SyncMeta{LocalID: 2, Dirty: true}, Name: "Globex"},
	}

	require.NoError(t, ta.ListNames(context.Background(), models.EntityClients))
	out := ta.out.String()
	assert.Contains(t, out, "Acme\n")
	assert.Contains(t, out, "Globex *")

	ta.out.Reset()
	require.NoError(t, ta.ListNames(context.Background(), models.EntityEngineers))
	assert.Contains(t, ta.out.String(), "no engineers")
}

func TestApp_FuelCommands(t *testing.T) {
	ta := newTestApp("")
	ctx := context.Background()

	require.Error(t, ta.SetFuelCost(ctx, nil))
	require.Error(t, ta.SetFuelCost(ctx, []string{"cheap"}))
	require.ErrorIs(t, ta.SetFuelCost(ctx, []string{"-1"}), services.ErrInvalidCost)

	require.NoError(t, ta.SetFuelCost(ctx, []string{"1.75"}))
	require.NoError(t, ta.ShowFuelCost(ctx))
	assert.Contains(t, ta.out.String(), "fuel cost per km: 1.75")
}

func TestApp_SyncCommands(t *testing.T) {
	ta := newTestApp("")
	ctx := context.Background()

	ta.sync.pushErr = errors.New("expenses: offline")
	err := ta.Sync(ctx)
	require.Error(t, err)
	out := ta.out.String()
	assert.Contains(t, out, "pushed 2 of 3, 1 failed")
	assert.Contains(t, out, "pushed 1 of 1\n")

	require.NoError(t, ta.Pull(ctx, nil))
	require.NoError(t, ta.Pull(ctx, []string{models.EntityFuelCost}))
	require.Error(t, ta.Pull(ctx, []string{"vehicles"}))
	assert.Equal(t, []string{"", models.EntityFuelCost}, ta.sync.resynced)

	ta.out.Reset()
	require.NoError(t, ta.Status(ctx))
	out = ta.out.String()
	assert.Contains(t, out, "connection: online")
	assert.Contains(t, out, "listening")
	assert.Contains(t, out, "suspended")
}

func TestApp_AnnounceRemoteOnly(t *testing.T) {
	ta := newTestApp("")

	ta.announce(notify.Change{Entity: models.EntityClients, Source: notify.SourceLocal})
	assert.Empty(t, ta.out.String())

	ta.announce(notify.Change{Entity: models.EntityClients, Source: notify.SourceRemote})
	assert.Contains(t, ta.out.String(), "clients updated from the server")

	ta.online = fakeOnline(false)
	assert.Equal(t, "(offline)", ta.getStatus())
}
