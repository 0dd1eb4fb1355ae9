package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/pkg/retry"
)

// DefaultPollInterval is how often a tailed file is checked for new data
const DefaultPollInterval = 250 * time.Millisecond

// FileTailConfig holds configuration for the file tail reader
type FileTailConfig struct {
	// PollInterval between reads once the end of the file is reached
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// FromStart emits the lines already in the file before following it
	FromStart bool `mapstructure:"from_start"`
	// OpenAttempts bounds the retries while the file does not exist yet
	OpenAttempts int `mapstructure:"open_attempts"`
}

// Validate checks the configuration for errors
func (c *FileTailConfig) Validate() error {
	if c.PollInterval < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: poll_interval must be >= 0", errors.ErrInvalidConfig),
			"FileTailConfig", "Validate", "poll interval check")
	}
	if c.OpenAttempts < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: open_attempts must be >= 0", errors.ErrInvalidConfig),
			"FileTailConfig", "Validate", "open attempts check")
	}
	return nil
}

// FileTailReader follows the file named on PATH and sends every line
// appended to it on OUT, with trailing whitespace stripped. It runs until
// the network shuts down or its receiver terminates.
type FileTailReader struct {
	*component.Base
	pathIn *component.InputPort
	out    *component.OutputPort
	config FileTailConfig
}

// NewFileTailReader creates a reader
func NewFileTailReader(name string, cfg FileTailConfig) *FileTailReader {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &FileTailReader{Base: component.NewBase(name), config: cfg}
}

// Initialize declares PATH and OUT
func (r *FileTailReader) Initialize() error {
	r.pathIn = r.DeclareInput("PATH", component.WithTypes(component.TypeString),
		component.WithDescription("File to tail"))
	r.out = r.DeclareOutput("OUT", component.WithTypes(component.TypeString),
		component.WithDescription("Lines that are added to the file"))
	return nil
}

// Run tails the file for the lifetime of the component
func (r *FileTailReader) Run(ctx context.Context) error {
	v, err := r.pathIn.Receive(ctx)
	if err != nil {
		return err
	}
	path, ok := v.(string)
	if !ok || path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: PATH must be a non-empty string", errors.ErrInvalidData),
			r.Path(), "Run", "read PATH")
	}

	f, err := r.open(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close()

	r.Log().Debug("Tailing file", "path", path)
	return r.follow(ctx, f)
}

func (r *FileTailReader) open(ctx context.Context, path string) (*os.File, error) {
	cfg := retry.Quick()
	if r.config.OpenAttempts > 0 {
		cfg.MaxAttempts = r.config.OpenAttempts
	}

	f, err := retry.DoWithResult(ctx, cfg, func() (*os.File, error) {
		f, err := os.Open(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, retry.NonRetryable(err)
		}
		return f, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, errors.WrapTransient(err, r.Path(), "Run", "open "+path)
	}

	if !r.config.FromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, errors.WrapTransient(err, r.Path(), "Run", "seek to end")
		}
	}
	return f, nil
}

// follow reads complete lines, polling at end of file. A partial last line
// is held back until its newline arrives. A truncated file is re-read from
// the start.
func (r *FileTailReader) follow(ctx context.Context, f *os.File) error {
	reader := bufio.NewReader(f)
	var partial strings.Builder

	for {
		chunk, err := reader.ReadString('\n')
		partial.WriteString(chunk)

		if err == nil {
			line := strings.TrimRightFunc(partial.String(), unicode.IsSpace)
			partial.Reset()
			r.Log().Debug("Tailed line", "line", line)
			if err := r.out.Send(ctx, line); err != nil {
				return err
			}
			continue
		}
		if err != io.EOF {
			return errors.WrapTransient(err, r.Path(), "Run", "read file")
		}

		if err := r.Suspend(ctx, r.config.PollInterval); err != nil {
			return err
		}
		if truncated, err := r.truncated(f); err != nil {
			return err
		} else if truncated {
			r.Log().Info("File truncated, reading from the start", "path", f.Name())
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return errors.WrapTransient(err, r.Path(), "Run", "seek to start")
			}
			reader.Reset(f)
			partial.Reset()
		}
	}
}

func (r *FileTailReader) truncated(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, errors.WrapTransient(err, r.Path(), "Run", "stat file")
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, errors.WrapTransient(err, r.Path(), "Run", "read offset")
	}
	return info.Size() < pos, nil
}
