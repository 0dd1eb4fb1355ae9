package input

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// UDP reader defaults
const (
	DefaultUDPBind       = "0.0.0.0"
	DefaultUDPBufferSize = 65536
	udpReadTimeout       = 100 * time.Millisecond
)

// UDPConfig holds configuration for the UDP reader
type UDPConfig struct {
	// Bind address; defaults to all interfaces
	Bind string `mapstructure:"bind"`
	// Port to listen on; 0 picks a free port
	Port int `mapstructure:"port"`
	// BufferSize is the largest datagram accepted
	BufferSize int `mapstructure:"buffer_size"`
}

// Validate checks the configuration for errors
func (c *UDPConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("%w: port must be 0..65535, got %d", errors.ErrInvalidConfig, c.Port),
			"UDPConfig", "Validate", "port check")
	}
	if c.BufferSize < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: buffer_size must be >= 0", errors.ErrInvalidConfig),
			"UDPConfig", "Validate", "buffer size check")
	}
	return nil
}

// UDPReader listens on a UDP socket and sends the payload of every datagram
// on OUT as a string. It runs until the network shuts down or its receiver
// terminates.
type UDPReader struct {
	*component.Base
	out    *component.OutputPort
	config UDPConfig

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewUDPReader creates a reader
func NewUDPReader(name string, cfg UDPConfig) *UDPReader {
	if cfg.Bind == "" {
		cfg.Bind = DefaultUDPBind
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultUDPBufferSize
	}
	return &UDPReader{Base: component.NewBase(name), config: cfg, ready: make(chan struct{})}
}

// Ready is closed once the socket is listening
func (r *UDPReader) Ready() <-chan struct{} { return r.ready }

// Addr returns the bound address, nil before the socket is listening
func (r *UDPReader) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// Initialize declares OUT
func (r *UDPReader) Initialize() error {
	r.out = r.DeclareOutput("OUT", component.WithTypes(component.TypeString),
		component.WithDescription("Datagram payloads"))
	return nil
}

// Run reads datagrams for the lifetime of the component
func (r *UDPReader) Run(ctx context.Context) error {
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(r.config.Bind, fmt.Sprint(r.config.Port)))
	if err != nil {
		return errors.WrapInvalid(err, r.Path(), "Run", "resolve bind address")
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return errors.WrapFatal(err, r.Path(), "Run", "listen")
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(r.config.BufferSize); err != nil {
		r.Log().Warn("Failed to set UDP read buffer", "size", r.config.BufferSize, "error", err)
	}

	r.mu.Lock()
	r.addr = conn.LocalAddr()
	r.mu.Unlock()
	r.readyOnce.Do(func() { close(r.ready) })
	r.Log().Info("Listening for UDP datagrams", "addr", conn.LocalAddr().String())

	buf := make([]byte, r.config.BufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		// short deadline so cancellation is noticed between datagrams
		if err := conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
			return errors.WrapTransient(err, r.Path(), "Run", "set read deadline")
		}

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return errors.WrapTransient(err, r.Path(), "Run", "read datagram")
		}

		r.Log().Debug("Received datagram", "from", from.String(), "bytes", n)
		if err := r.out.Send(ctx, string(buf[:n])); err != nil {
			return err
		}
	}
}

func newUDPReader(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config UDPConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewUDPReader(name, config), nil
}
