package capture

import (
	"hash"
	"time"

	"github.com/cespare/xxhash"
)

// Stats summarises what a loop wrote to its sink. Digest is the xxhash64 of
// the complete output stream, so a capture file can be checked against the
// value logged at exit. Stats belongs to the loop goroutine; read it after
// Run returns.
type Stats struct {
	Datagrams uint64
	Bytes     uint64
	First     time.Time
	Last      time.Time

	digest hash.Hash64
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{digest: xxhash.New()}
}

func (s *Stats) record(payload []byte, at time.Time) {
	if s.Datagrams == 0 {
		s.First = at
	}
	s.Last = at
	s.Datagrams++
	s.Bytes += uint64(len(payload))
	_, _ = s.digest.Write(payload)
}

// Digest returns the xxhash64 of all payload bytes recorded so far.
func (s *Stats) Digest() uint64 {
	return s.digest.Sum64()
}

// Span is the time between the first and the last datagram.
func (s *Stats) Span() time.Duration {
	if s.Datagrams == 0 {
		return 0
	}
	return s.Last.Sub(s.First)
}

// Fields renders the summary for structured logging.
func (s *Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"datagrams": s.Datagrams,
		"bytes":     s.Bytes,
		"xxhash64":  s.Digest(),
		"span":      s.Span().String(),
	}
}
