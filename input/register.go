package input

import (
	"github.com/wildparky/pflow/component"
)

func newRandomNumberGenerator(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config RNGConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewRandomNumberGenerator(name, config), nil
}

func newFileTailReader(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config FileTailConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewFileTailReader(name, config), nil
}

// Register registers the input components with the given registry
func Register(registry *component.Registry) error {
	if err := registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "RandomNumberGenerator",
		Factory:     newRandomNumberGenerator,
		Type:        component.TypeInput,
		Description: "Sends random integers between 1 and 100, optionally seeded and limited",
		Version:     "1.0.0",
	}); err != nil {
		return err
	}

	for _, cfg := range []component.RegistrationConfig{
		{
			Name:        "FileTailReader",
			Factory:     newFileTailReader,
			Type:        component.TypeInput,
			Description: "Follows a file and sends every appended line",
			Version:     "1.0.0",
		},
		{
			Name:        "UDPReader",
			Factory:     newUDPReader,
			Type:        component.TypeInput,
			Description: "Listens on a UDP port and sends the payload of every datagram",
			Version:     "1.0.0",
		},
		{
			Name:        "WebSocketReader",
			Factory:     newWebSocketReader,
			Type:        component.TypeInput,
			Description: "Connects to a WebSocket server and sends every message it receives",
			Version:     "1.0.0",
		},
	} {
		if err := registry.RegisterWithConfig(cfg); err != nil {
			return err
		}
	}
	return nil
}
