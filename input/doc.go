// Package input provides the stock source components.
//
// RandomNumberGenerator sends integers in [1, 100]. Its optional SEED port
// makes the sequence reproducible and its optional LIMIT port bounds it; the
// same settings are available as component config (seed, limit, interval).
//
// FileTailReader receives a path on PATH and follows the file like tail -f,
// sending each appended line with trailing whitespace stripped. Opening
// retries with backoff while the file does not exist yet. Config:
// poll_interval, from_start, open_attempts.
//
// Both components loop inside a single Run invocation, so they keep running
// after their configuration ports have been drained.
package input
