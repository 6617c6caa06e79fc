// Package sink is the destination of captured payload bytes: standard output
// or a file truncated at open.
package sink

import (
	"fmt"
	"os"

	"firestige.xyz/mcastdump/internal/core"
)

// Sink writes payloads straight to the underlying file with one write per
// payload. It keeps no user-space buffer, so bytes reach the kernel in the
// order they are written.
type Sink struct {
	f     *os.File
	name  string
	owned bool
}

// Open returns a sink for path. An empty path or "-" selects standard output.
// Any other path is created or truncated with mode 0644; failure wraps
// core.ErrSinkOpen.
func Open(path string) (*Sink, error) {
	if path == "" || path == "-" {
		return &Sink{f: os.Stdout, name: "stdout"}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSinkOpen, err)
	}
	return &Sink{f: f, name: path, owned: true}, nil
}

// Write writes p in full or returns an error wrapping core.ErrSinkWrite.
func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", core.ErrSinkWrite, err)
	}
	return n, nil
}

// Flush commits written bytes to stable storage for file sinks. Standard
// output has nothing buffered in-process and is left alone.
func (s *Sink) Flush() error {
	if !s.owned {
		return nil
	}
	return s.f.Sync()
}

// Close flushes the sink and closes files it opened. Standard output stays open.
func (s *Sink) Close() error {
	if err := s.Flush(); err != nil {
		if s.owned {
			_ = s.f.Close()
		}
		return err
	}
	if !s.owned {
		return nil
	}
	return s.f.Close()
}

// Name returns "stdout" or the file path.
func (s *Sink) Name() string {
	return s.name
}
