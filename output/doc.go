// Package output provides sink components: Drop, ConsoleLineWriter and
// NATSPublisher.
package output
