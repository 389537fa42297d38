package orchestrator

import (
	"context"
	"database/sql"
	"net"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fieldsync/internal/client/identity"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/notify"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/storage"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
	"github.com/dmitrijs2005/fieldsync/internal/server/documents"
	server "github.com/dmitrijs2005/fieldsync/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/test/bufconn"
)

// testRemote is a remote store that can be stopped and started again on a
// new listener. The documents survive a restart.
type testRemote struct {
	t     *testing.T
	store *documents.MemoryStore

	mu   sync.Mutex
	lis  *bufconn.Listener
	stop func()
}

func startServer(t *testing.T) *testRemote {
	t.Helper()

	r := &testRemote{t: t, store: documents.NewMemoryStore()}
	r.start()
	t.Cleanup(r.shutdown)
	return r
}

func (r *testRemote) start() {
	svc := documents.NewService(r.store, documents.NewHub(), nopLogger{})
	srv := server.NewGRPCServer("bufnet", nopLogger{}, svc, "secret", time.Hour)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	r.mu.Lock()
	r.lis = lis
	r.stop = func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			r.t.Error("server did not stop")
		}
	}
	r.mu.Unlock()
}

func (r *testRemote) shutdown() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (r *testRemote) dial(ctx context.Context, _ string) (net.Conn, error) {
	r.mu.Lock()
	lis := r.lis
	r.mu.Unlock()
	return lis.DialContext(ctx)
}

// device is one field device: its own database, client and sync stack.
type device struct {
	db        *sql.DB
	mon       *connectivity.Monitor
	orch      *Orchestrator
	expenses  *services.ExpenseService
	engineers *services.NameService
	clients   *services.NameService
	fuel      *services.FuelCostService
}

func newDevice(t *testing.T, remote *testRemote, name string) *device {
	t.Helper()
	ctx := context.Background()

	db, err := storage.InitDatabase(ctx, filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)

	c, err := client.NewGRPCClient("passthrough:///bufnet",
		grpc.WithContextDialer(remote.dial),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.Config{BaseDelay: 20 * time.Millisecond, Multiplier: 1.6, MaxDelay: 200 * time.Millisecond},
			MinConnectTimeout: time.Second,
		}))
	require.NoError(t, err)

	ident := identity.NewProvider(c, metadata.NewSQLiteRepository(db), nopLogger{})
	hub := notify.NewHub()
	mon := connectivity.NewMonitor(c, time.Hour, nopLogger{})
	require.True(t, mon.Probe(ctx))

	orch := New(NewReconcilers(db, c, ident, hub, nopLogger{}), mon, ident, nopLogger{})
	orch.retryInterval = 100 * time.Millisecond

	d := &device{
		db:        db,
		mon:       mon,
		orch:      orch,
		expenses:  services.NewExpenseService(db, orch, hub, nopLogger{}),
		engineers: services.NewEngineerService(db, orch, hub, nopLogger{}),
		clients:   services.NewClientService(db, orch, hub, nopLogger{}),
		fuel:      services.NewFuelCostService(db, orch, hub, nopLogger{}),
	}

	require.NoError(t, orch.Start(ctx))
	t.Cleanup(func() {
		orch.Stop()
		_ = c.Close()
		_ = db.Close()
	})
	return d
}

func (d *device) engineerNames(t *testing.T) []string {
	rows, err := d.engineers.ListActive(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func (d *device) activeExpenses(t *testing.T) []models.Expense {
	rows, err := d.expenses.ListActive(context.Background())
	require.NoError(t, err)
	return rows
}

func (d *device) dirtyCount(t *testing.T) int {
	var n int
	err := d.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM expenses WHERE synced = 0) +
		(SELECT COUNT(*) FROM engineers WHERE synced = 0) +
		(SELECT COUNT(*) FROM clients WHERE synced = 0) +
		(SELECT COUNT(*) FROM fuel_cost_settings WHERE synced = 0)`).Scan(&n)
	require.NoError(t, err)
	return n
}

const converge = 5 * time.Second
const tick = 20 * time.Millisecond

func TestConvergence_TwoDevicesShareOneRemote(t *testing.T) {
	remote := startServer(t)
	a := newDevice(t, remote, "a")
	b := newDevice(t, remote, "b")
	ctx := context.Background()

	require.NoError(t, a.fuel.Set(ctx, 0.5))
	_, err := a.engineers.Add(ctx, "Ann")
	require.NoError(t, err)
	_, err = a.clients.Add(ctx, "Acme")
	require.NoError(t, err)

	f := models.ExpenseFields{EngName: "Ann", Date: "2025-01-01", Cost: "10", Client: "Acme", Distance: "20", StartTime: "9:00 AM", EndTime: "11:30 AM"}
	_, err = a.expenses.Add(ctx, f)
	require.NoError(t, err)

	// Everything reaches B.
	require.Eventually(t, func() bool {
		v, err := b.fuel.Get(ctx)
		return err == nil && v == 0.5 &&
			len(b.activeExpenses(t)) == 1 &&
			len(b.engineerNames(t)) == 1
	}, converge, tick)

	got := b.activeExpenses(t)[0]
	assert.Equal(t, "Ann", got.EngName)
	assert.Equal(t, 10.0, got.FuelCost)
	assert.Equal(t, 2.5, got.TimeConsumed)
	assert.NotEmpty(t, got.RemoteID)
	assert.False(t, got.Dirty)

	clients, err := b.clients.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme", clients[0].RemoteID)

	// Both sides are clean and A links its expense to the same key.
	require.Eventually(t, func() bool { return a.dirtyCount(t) == 0 && b.dirtyCount(t) == 0 }, converge, tick)
	mine := a.activeExpenses(t)
	require.Len(t, mine, 1)
	assert.Equal(t, got.RemoteID, mine[0].RemoteID)

	// A deletion on B removes the expense on A and does not come back.
	require.NoError(t, b.expenses.SoftDelete(ctx, got.LocalID))
	require.Eventually(t, func() bool { return len(a.activeExpenses(t)) == 0 }, converge, tick)

	row, err := expenses.NewSQLiteRepository(a.db).Get(ctx, mine[0].LocalID)
	require.NoError(t, err)
	assert.True(t, row.Deleted)

	// The same name added on both devices stays a single row on each.
	_, err = a.engineers.Add(ctx, "Bob")
	require.NoError(t, err)
	_, err = b.engineers.Add(ctx, "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(a.engineerNames(t)) == 2 && len(b.engineerNames(t)) == 2 &&
			a.dirtyCount(t) == 0 && b.dirtyCount(t) == 0
	}, converge, tick)

	// The later fuel cost wins everywhere.
	require.NoError(t, a.fuel.Set(ctx, 0.6))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.fuel.Set(ctx, 0.7))

	require.Eventually(t, func() bool {
		va, errA := a.fuel.Get(ctx)
		vb, errB := b.fuel.Get(ctx)
		return errA == nil && errB == nil && va == 0.7 && vb == 0.7 &&
			a.dirtyCount(t) == 0 && b.dirtyCount(t) == 0
	}, converge, tick)
}

func TestConvergence_PushIsIdempotent(t *testing.T) {
	remote := startServer(t)
	a := newDevice(t, remote, "a")
	ctx := context.Background()

	_, err := a.clients.Add(ctx, "Acme")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.dirtyCount(t) == 0 }, converge, tick)

	res, err := a.orch.PushAll(ctx)
	require.NoError(t, err)
	for entity, r := range res {
		assert.Zero(t, r.Attempted, entity)
	}

	require.NoError(t, a.orch.Resync(ctx, ""))
	clients, err := a.clients.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

func TestConvergence_SurvivesServerRestart(t *testing.T) {
	remote := startServer(t)
	a := newDevice(t, remote, "a")
	b := newDevice(t, remote, "b")
	ctx := context.Background()

	_, err := a.engineers.Add(ctx, "Ann")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return slices.Contains(b.engineerNames(t), "Ann") }, converge, tick)

	remote.shutdown()
	require.Eventually(t, func() bool {
		return b.orch.States()[models.EntityEngineers] == syncer.StateUninitialized
	}, converge, tick, "a lost stream leaves the reconciler restartable")
	require.Eventually(t, func() bool { return !a.mon.Probe(ctx) && !b.mon.Probe(ctx) }, converge, tick)

	// written while the server is down
	_, err = a.engineers.Add(ctx, "Yan")
	require.NoError(t, err)

	remote.start()
	require.Eventually(t, func() bool { return a.mon.Probe(ctx) && b.mon.Probe(ctx) }, converge, tick)
	require.Eventually(t, func() bool {
		for _, st := range b.orch.States() {
			if st != syncer.StateListening {
				return false
			}
		}
		return true
	}, converge, tick)

	_, err = a.engineers.Add(ctx, "Zed")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		names := b.engineerNames(t)
		return slices.Contains(names, "Yan") && slices.Contains(names, "Zed")
	}, converge, tick)
	require.Eventually(t, func() bool { return a.dirtyCount(t) == 0 }, converge, tick)
}
