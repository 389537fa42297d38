package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

const (
	feedBuffer   = 100
	writeTimeout = 5 * time.Second
)

// Feed broadcasts changes as JSON text messages to websocket clients
// connected on /ws.
type Feed struct {
	addr   string
	logger logging.Logger

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]struct{}

	broadcast chan Change
}

func NewFeed(addr string, logger logging.Logger) *Feed {
	return &Feed{
		addr:      addr,
		logger:    logger.With("module", "notify_feed"),
		clients:   map[*websocket.Conn]struct{}{},
		broadcast: make(chan Change, feedBuffer),
	}
}

// Send queues c for broadcast. It never blocks; a full queue drops c.
func (f *Feed) Send(c Change) {
	select {
	case f.broadcast <- c:
	default:
		f.logger.Warn(context.Background(), "Feed queue full, dropping change", "entity", c.Entity)
	}
}

func (f *Feed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

func (f *Feed) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	return f.Serve(ctx, ln)
}

// Serve accepts websocket clients on ln until ctx is done.
func (f *Feed) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { f.handleWebSocket(ctx, w, r) })

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.broadcastLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		f.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	f.logger.Info(ctx, "Notification feed listening", "address", ln.Addr().String())

	err := srv.Serve(ln)
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (f *Feed) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-f.broadcast:
			data, err := json.Marshal(c)
			if err != nil {
				f.logger.Error(ctx, "Failed to marshal change", "error", err)
				continue
			}

			f.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(f.clients))
			for conn := range f.clients {
				clients = append(clients, conn)
			}
			f.clientsMu.RUnlock()

			for _, conn := range clients {
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Write(wctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					f.logger.Warn(ctx, "Failed to send to feed client", "error", err)
					f.removeClient(conn)
				}
			}
		}
	}
}

func (f *Feed) handleWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.logger.Warn(ctx, "WebSocket upgrade failed", "error", err)
		return
	}

	f.clientsMu.Lock()
	f.clients[conn] = struct{}{}
	f.clientsMu.Unlock()

	go f.readLoop(ctx, conn)
}

// readLoop discards client messages and notices disconnects.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer f.removeClient(conn)
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (f *Feed) removeClient(conn *websocket.Conn) {
	f.clientsMu.Lock()
	_, ok := f.clients[conn]
	delete(f.clients, conn)
	f.clientsMu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (f *Feed) closeAll() {
	f.clientsMu.Lock()
	clients := f.clients
	f.clients = map[*websocket.Conn]struct{}{}
	f.clientsMu.Unlock()

	for conn := range clients {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}
