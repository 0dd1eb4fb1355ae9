package output

import (
	"github.com/wildparky/pflow/component"
)

// Register registers the output components with the given registry
func Register(registry *component.Registry) error {
	for _, cfg := range []component.RegistrationConfig{
		{
			Name:        "Drop",
			Factory:     newDrop,
			Type:        component.TypeOutput,
			Description: "Discards every packet it receives",
			Version:     "1.0.0",
		},
		{
			Name:        "ConsoleLineWriter",
			Factory:     newConsoleLineWriter,
			Type:        component.TypeOutput,
			Description: "Prints every value it receives on its own line",
			Version:     "1.0.0",
		},
		{
			Name:        "NATSPublisher",
			Factory:     newNATSPublisher,
			Type:        component.TypeOutput,
			Description: "Publishes every value it receives to a NATS subject as JSON",
			Version:     "1.0.0",
		},
		{
			Name:        "FileLineWriter",
			Factory:     newFileLineWriter,
			Type:        component.TypeOutput,
			Description: "Writes every value it receives to a file, one line or JSON document per value",
			Version:     "1.0.0",
		},
		{
			Name:        "HTTPPoster",
			Factory:     newHTTPPoster,
			Type:        component.TypeOutput,
			Description: "POSTs every value it receives as JSON and reports the response status",
			Version:     "1.0.0",
		},
		{
			Name:        "WebSocketBroadcaster",
			Factory:     newWebSocketBroadcaster,
			Type:        component.TypeOutput,
			Description: "Broadcasts every value it receives to the connected WebSocket clients",
			Version:     "1.0.0",
		},
	} {
		if err := registry.RegisterWithConfig(cfg); err != nil {
			return err
		}
	}
	return nil
}
