package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// File output formats
const (
	FormatLine  = "line"
	FormatJSONL = "jsonl"
)

// FileConfig holds configuration for the file line writer
type FileConfig struct {
	// Path of the file to write; parent directories are created
	Path string `mapstructure:"path"`
	// Append keeps existing content instead of truncating the file
	Append bool `mapstructure:"append"`
	// Format is "line" (fmt %v) or "jsonl" (one JSON document per line)
	Format string `mapstructure:"format"`
}

// Validate checks the configuration for errors
func (c *FileConfig) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: path is required", errors.ErrMissingConfig),
			"FileConfig", "Validate", "path check")
	}
	switch c.Format {
	case "", FormatLine, FormatJSONL:
	default:
		return errors.WrapInvalid(fmt.Errorf("%w: unknown format %q", errors.ErrInvalidConfig, c.Format),
			"FileConfig", "Validate", "format check")
	}
	return nil
}

// FileLineWriter writes every value it receives to a file, one per line.
// The file is opened on the first activation and closed when IN is exhausted.
type FileLineWriter struct {
	*component.Base
	in     *component.InputPort
	config FileConfig
}

// NewFileLineWriter creates a writer
func NewFileLineWriter(name string, cfg FileConfig) *FileLineWriter {
	if cfg.Format == "" {
		cfg.Format = FormatLine
	}
	return &FileLineWriter{Base: component.NewBase(name), config: cfg}
}

// Initialize declares IN
func (w *FileLineWriter) Initialize() error {
	w.in = w.DeclareInput("IN", component.WithDescription("Values to write, one per line"))
	return nil
}

// Run writes values until IN is exhausted
func (w *FileLineWriter) Run(ctx context.Context) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	for {
		v, err := w.in.Receive(ctx)
		if err != nil {
			if ferr := buf.Flush(); ferr != nil {
				w.Log().Error("Failed to flush file", ferr, "path", w.config.Path)
			}
			return err
		}
		if err := w.write(buf, v); err != nil {
			return err
		}
		// flush per line so the file can be tailed while the network runs
		if err := buf.Flush(); err != nil {
			return errors.WrapTransient(err, w.Path(), "Run", "flush")
		}
	}
}

func (w *FileLineWriter) open() (*os.File, error) {
	if dir := filepath.Dir(w.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapFatal(err, w.Path(), "Run", "create directory")
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if w.config.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(w.config.Path, flags, 0o644)
	if err != nil {
		return nil, errors.WrapFatal(err, w.Path(), "Run", "open "+w.config.Path)
	}
	w.Log().Debug("Writing file", "path", w.config.Path, "format", w.config.Format)
	return f, nil
}

func (w *FileLineWriter) write(buf *bufio.Writer, v any) error {
	if w.config.Format == FormatJSONL {
		data, err := json.Marshal(v)
		if err != nil {
			return errors.WrapInvalid(err, w.Path(), "Run", "encode value")
		}
		data = append(data, '\n')
		if _, err := buf.Write(data); err != nil {
			return errors.WrapTransient(err, w.Path(), "Run", "write line")
		}
		return nil
	}
	if _, err := fmt.Fprintf(buf, "%v\n", v); err != nil {
		return errors.WrapTransient(err, w.Path(), "Run", "write line")
	}
	return nil
}

func newFileLineWriter(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config FileConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewFileLineWriter(name, config), nil
}
