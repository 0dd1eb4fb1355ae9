package input

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/pkg/retry"
)

// WebSocketConfig holds configuration for the WebSocket reader
type WebSocketConfig struct {
	// URL of the server, ws:// or wss://
	URL string `mapstructure:"url"`
	// HandshakeTimeout bounds each dial attempt
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	// ConnectAttempts bounds the dial retries; 0 uses the quick retry policy
	ConnectAttempts int `mapstructure:"connect_attempts"`
}

// Validate checks the configuration for errors
func (c *WebSocketConfig) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url is required", errors.ErrMissingConfig),
			"WebSocketConfig", "Validate", "url check")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url must be a ws:// or wss:// URL", errors.ErrInvalidConfig),
			"WebSocketConfig", "Validate", "url check")
	}
	if c.HandshakeTimeout < 0 || c.ConnectAttempts < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: handshake_timeout and connect_attempts must be >= 0",
			errors.ErrInvalidConfig), "WebSocketConfig", "Validate", "limits check")
	}
	return nil
}

// WebSocketReader connects to a WebSocket server and sends every message it
// receives on OUT as a string. A normal close from the server terminates the
// reader.
type WebSocketReader struct {
	*component.Base
	out    *component.OutputPort
	config WebSocketConfig
}

// NewWebSocketReader creates a reader
func NewWebSocketReader(name string, cfg WebSocketConfig) *WebSocketReader {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 45 * time.Second
	}
	return &WebSocketReader{Base: component.NewBase(name), config: cfg}
}

// Initialize declares OUT
func (r *WebSocketReader) Initialize() error {
	r.out = r.DeclareOutput("OUT", component.WithTypes(component.TypeString),
		component.WithDescription("Messages received from the server"))
	return nil
}

// Run reads messages until the server closes the connection
func (r *WebSocketReader) Run(ctx context.Context) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r.Log().Info("Connected to WebSocket server", "url", r.config.URL)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.Log().Info("WebSocket server closed the connection", "url", r.config.URL)
				r.Terminate()
				return nil
			}
			return errors.WrapTransient(err, r.Path(), "Run", "read message")
		}
		if err := r.out.Send(ctx, string(data)); err != nil {
			return err
		}
	}
}

func (r *WebSocketReader) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: r.config.HandshakeTimeout}
	cfg := retry.Quick()
	if r.config.ConnectAttempts > 0 {
		cfg.MaxAttempts = r.config.ConnectAttempts
	}

	conn, err := retry.DoWithResult(ctx, cfg, func() (*websocket.Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, r.config.URL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return conn, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, errors.WrapTransient(err, r.Path(), "Run", "dial "+r.config.URL)
	}
	return conn, nil
}

func newWebSocketReader(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config WebSocketConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewWebSocketReader(name, config), nil
}
