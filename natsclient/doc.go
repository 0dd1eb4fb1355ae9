// Package natsclient manages the NATS connection used by pflow for event
// publishing and the NATSPublisher output.
//
// The client tracks its connection through the lifecycle
// Disconnected → Connecting → Connected ⇄ Reconnecting → Closed and mirrors
// it on the pflow_nats_connected gauge when WithMetrics is set. Connect
// retries with exponential backoff from pkg/retry; once connected, the NATS
// library reconnects on its own.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithMetrics(registry.CoreMetrics()))
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close()
//
//	deps := component.Dependencies{NATSConn: client.Conn()}
package natsclient
