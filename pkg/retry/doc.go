// Package retry provides exponential backoff retry logic for transient failures.
//
// Do runs a function until it succeeds, returns an error that must not be
// retried, or the attempt budget runs out. Errors classified invalid or fatal
// by the errors package, errors wrapped with NonRetryable and termination
// signals stop retrying immediately.
//
// Presets: DefaultConfig (3 attempts), Quick (10 attempts, short delays) and
// Persistent (30 attempts).
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//		f, err = os.Open(path)
//		return err
//	})
package retry
