package link

// Option configures a Session at construction.
type Option func(*Session)

// WithOpener replaces the serial opener, e.g. with a socket bridge or a
// scripted port in tests.
func WithOpener(open Opener) Option {
	return func(s *Session) {
		if open != nil {
			s.open = open
		}
	}
}

// WithChunkSize sets how many bytes a single Read may return.
func WithChunkSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

type readConfig struct {
	verify bool
}

// ReadOption adjusts a single Read call.
type ReadOption func(*readConfig)

// SkipVerify returns the accumulated bytes without structural verification.
// Reads verify by default; only control-level exchanges where the caller
// validates the bytes itself should opt out.
func SkipVerify() ReadOption {
	return func(c *readConfig) {
		c.verify = false
	}
}
