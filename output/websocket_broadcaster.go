package output

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// WebSocket broadcaster defaults
const (
	DefaultWebSocketAddr = ":8081"
	DefaultWebSocketPath = "/ws"
	wsWriteTimeout       = 10 * time.Second
)

// WebSocketConfig holds configuration for the WebSocket broadcaster
type WebSocketConfig struct {
	// Addr the HTTP server listens on
	Addr string `mapstructure:"addr"`
	// Path clients connect to
	Path string `mapstructure:"path"`
}

// Validate checks the configuration for errors
func (c *WebSocketConfig) Validate() error {
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errors.WrapInvalid(fmt.Errorf("%w: path must start with /", errors.ErrInvalidConfig),
			"WebSocketConfig", "Validate", "path check")
	}
	return nil
}

// WebSocketBroadcaster serves a WebSocket endpoint and sends every value it
// receives, JSON encoded, to all connected clients. Values arriving while no
// client is connected are dropped. A client whose write fails is
// disconnected.
type WebSocketBroadcaster struct {
	*component.Base
	in       *component.InputPort
	config   WebSocketConfig
	upgrader websocket.Upgrader

	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewWebSocketBroadcaster creates a broadcaster
func NewWebSocketBroadcaster(name string, cfg WebSocketConfig) *WebSocketBroadcaster {
	if cfg.Addr == "" {
		cfg.Addr = DefaultWebSocketAddr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultWebSocketPath
	}
	return &WebSocketBroadcaster{
		Base:   component.NewBase(name),
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the server is listening
func (b *WebSocketBroadcaster) Ready() <-chan struct{} { return b.ready }

// Addr returns the listening address, nil before the server started
func (b *WebSocketBroadcaster) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

// Clients returns the number of connected clients
func (b *WebSocketBroadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Initialize declares IN
func (b *WebSocketBroadcaster) Initialize() error {
	b.in = b.DeclareInput("IN", component.WithDescription("Values to broadcast"))
	return nil
}

// Run serves clients until IN is exhausted
func (b *WebSocketBroadcaster) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.config.Addr)
	if err != nil {
		return errors.WrapFatal(err, b.Path(), "Run", "listen on "+b.config.Addr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(b.config.Path, b.handleUpgrade)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.Log().Error("WebSocket server stopped", err)
		}
	}()
	defer b.closeAll(srv)

	b.mu.Lock()
	b.addr = ln.Addr()
	b.mu.Unlock()
	b.readyOnce.Do(func() { close(b.ready) })
	b.Log().Info("Serving WebSocket clients", "addr", ln.Addr().String(), "path", b.config.Path)

	for {
		v, err := b.in.Receive(ctx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return errors.WrapInvalid(err, b.Path(), "Run", "encode value")
		}
		b.broadcast(data)
	}
}

func (b *WebSocketBroadcaster) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.Log().Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()
	b.Log().Debug("WebSocket client connected", "remote", r.RemoteAddr)

	// clients only send control frames; reading detects the disconnect
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.remove(conn)
				return
			}
		}
	}()
}

func (b *WebSocketBroadcaster) broadcast(data []byte) {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			b.Log().Debug("Dropping WebSocket client", "remote", c.RemoteAddr().String(), "error", err)
			b.remove(c)
		}
	}
}

func (b *WebSocketBroadcaster) remove(c *websocket.Conn) {
	b.mu.Lock()
	_, ok := b.clients[c]
	delete(b.clients, c)
	b.mu.Unlock()
	if ok {
		c.Close()
	}
}

// closeAll sends a normal close to every client and stops the server
func (b *WebSocketBroadcaster) closeAll(srv *http.Server) {
	b.mu.Lock()
	conns := b.clients
	b.clients = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	for c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		b.Log().Warn("WebSocket server shutdown incomplete", "error", err)
	}
}

func newWebSocketBroadcaster(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config WebSocketConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewWebSocketBroadcaster(name, config), nil
}
