package input

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// RNGConfig holds configuration for the random number generator. Values
// received on the SEED and LIMIT ports take precedence.
type RNGConfig struct {
	// Seed makes the sequence reproducible; nil seeds from the runtime source
	Seed *int64 `mapstructure:"seed"`
	// Limit is the number of values to send; nil means unbounded. The first
	// value is always sent, so a limit below one still sends one value.
	Limit *int `mapstructure:"limit"`
	// Interval between values
	Interval time.Duration `mapstructure:"interval"`
}

// Validate checks the configuration for errors
func (c *RNGConfig) Validate() error {
	if c.Limit != nil && *c.Limit < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: limit must be >= 0", errors.ErrInvalidConfig),
			"RNGConfig", "Validate", "limit check")
	}
	if c.Interval < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: interval must be >= 0", errors.ErrInvalidConfig),
			"RNGConfig", "Validate", "interval check")
	}
	return nil
}

// RandomNumberGenerator sends random integers in [1, 100] on OUT until
// LIMIT values have been sent, then terminates. Without a limit it runs
// until the network shuts down or its receiver terminates.
type RandomNumberGenerator struct {
	*component.Base
	seedIn  *component.InputPort
	limitIn *component.InputPort
	out     *component.OutputPort
	config  RNGConfig
}

// NewRandomNumberGenerator creates a generator
func NewRandomNumberGenerator(name string, cfg RNGConfig) *RandomNumberGenerator {
	return &RandomNumberGenerator{Base: component.NewBase(name), config: cfg}
}

// Initialize declares SEED, LIMIT and OUT
func (g *RandomNumberGenerator) Initialize() error {
	g.seedIn = g.DeclareInput("SEED", component.WithTypes(component.TypeInt, component.TypeFloat),
		component.Optional(), component.WithDescription("Seed value for the generator"))
	g.limitIn = g.DeclareInput("LIMIT", component.WithTypes(component.TypeInt, component.TypeFloat),
		component.Optional(), component.WithDescription("Number of values to send (default: unbounded)"))
	g.out = g.DeclareOutput("OUT", component.WithTypes(component.TypeInt))
	return nil
}

// Run generates the whole sequence in one invocation
func (g *RandomNumberGenerator) Run(ctx context.Context) error {
	seed, limit := g.config.Seed, g.config.Limit

	v, err := g.receiveInt(ctx, g.seedIn)
	if err != nil {
		return err
	}
	if v != nil {
		s := int64(*v)
		seed = &s
	}
	if v, err = g.receiveInt(ctx, g.limitIn); err != nil {
		return err
	}
	if v != nil {
		limit = v
	}
	if limit != nil && *limit < 0 {
		return errors.WrapInvalid(fmt.Errorf("LIMIT must be >= 0, got %d", *limit), g.Path(), "Run", "read LIMIT")
	}

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewPCG(uint64(*seed), 0))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	for sent := 0; ; {
		if sent > 0 {
			if err := g.Suspend(ctx, g.config.Interval); err != nil {
				return err
			}
		}
		if err := g.out.Send(ctx, rng.IntN(100)+1); err != nil {
			return err
		}
		sent++
		if limit != nil && sent >= *limit {
			g.Log().Debug("limit reached", "sent", sent)
			break
		}
	}

	g.Terminate()
	return nil
}

// receiveInt reads one optional integer; nil means no value arrived
func (g *RandomNumberGenerator) receiveInt(ctx context.Context, in *component.InputPort) (*int, error) {
	v, err := in.Receive(ctx)
	if errors.Is(err, errors.ErrPortClosed) || (err == nil && v == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n, err := asInt(v)
	if err != nil {
		return nil, errors.WrapInvalid(err, g.Path(), "Run", "read "+in.Name())
	}
	return &n, nil
}
