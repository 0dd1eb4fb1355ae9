package processor

import (
	"github.com/wildparky/pflow/component"
)

// SleepConfig holds configuration for the Sleep component
type SleepConfig struct {
	// Delay in seconds, used when the DELAY port is unconnected
	Delay float64 `mapstructure:"delay"`
}

// LogTapConfig holds configuration for the LogTap graph
type LogTapConfig struct {
	Prefix string `mapstructure:"prefix"`
}

func noConfig(cfg map[string]any) error {
	return component.DecodeConfig(cfg, &struct{}{})
}

func newRepeat(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := noConfig(cfg); err != nil {
		return nil, err
	}
	return NewRepeat(name), nil
}

func newSleep(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config SleepConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	d, err := secondsDuration(config.Delay)
	if err != nil {
		return nil, err
	}
	return NewSleep(name).WithDelay(d), nil
}

func newSplit(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := noConfig(cfg); err != nil {
		return nil, err
	}
	return NewSplit(name), nil
}

func newRegexFilter(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := noConfig(cfg); err != nil {
		return nil, err
	}
	return NewRegexFilter(name), nil
}

func newConcat(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := noConfig(cfg); err != nil {
		return nil, err
	}
	return NewConcat(name), nil
}

func newMultiply(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := noConfig(cfg); err != nil {
		return nil, err
	}
	return NewMultiply(name), nil
}

func newLogTap(name string, cfg map[string]any, deps component.Dependencies) (component.Node, error) {
	var config LogTapConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	return NewLogTap(name, deps.GetStdout()).WithPrefix(config.Prefix), nil
}

// Register registers the processor components with the given registry
func Register(registry *component.Registry) error {
	for _, cfg := range []component.RegistrationConfig{
		{
			Name:        "Repeat",
			Factory:     newRepeat,
			Type:        component.TypeProcessor,
			Description: "Forwards every input packet unchanged",
			Version:     "1.0.0",
		},
		{
			Name:        "Sleep",
			Factory:     newSleep,
			Type:        component.TypeProcessor,
			Description: "Forwards every input packet after DELAY seconds",
			Version:     "1.0.0",
		},
		{
			Name:        "Split",
			Factory:     newSplit,
			Type:        component.TypeProcessor,
			Description: "Copies every input packet to each connected OUT slot",
			Version:     "1.0.0",
		},
		{
			Name:        "RegexFilter",
			Factory:     newRegexFilter,
			Type:        component.TypeProcessor,
			Description: "Forwards strings matching REGEX and drops the rest",
			Version:     "1.0.0",
		},
		{
			Name:        "Concat",
			Factory:     newConcat,
			Type:        component.TypeProcessor,
			Description: "Forwards IN[0] to exhaustion, then IN[1], and so on",
			Version:     "1.0.0",
		},
		{
			Name:        "Multiply",
			Factory:     newMultiply,
			Type:        component.TypeProcessor,
			Description: "Sends the integer product of X and Y",
			Version:     "1.0.0",
		},
		{
			Name:        "LogTap",
			Factory:     newLogTap,
			Type:        component.TypeGraph,
			Description: "Passes IN through to OUT while printing each value",
			Version:     "1.0.0",
		},
	} {
		if err := registry.RegisterWithConfig(cfg); err != nil {
			return err
		}
	}
	return nil
}
