// Package processor provides the stock transforming components: Repeat,
// Sleep, Split, RegexFilter, Concat, Multiply and the LogTap graph.
//
// Components read their configuration ports (DELAY, REGEX) once, before
// the first data packet, and are otherwise one-shot bodies that the network
// re-invokes per packet. Register adds every component to a registry:
//
//	registry := component.NewRegistry()
//	if err := processor.Register(registry); err != nil {
//		return err
//	}
package processor
