package core

import (
	"net"
	"time"
)

// MaxDatagramSize is the largest UDP payload an IPv4 socket can deliver.
// Receive buffers use it so jumbo frames are never truncated.
const MaxDatagramSize = 65535

// Datagram is one received UDP payload. Payload aliases the loop's receive
// buffer and is only valid until the next read.
type Datagram struct {
	Payload   []byte
	Source    net.Addr
	Timestamp time.Time
}

// Len returns the payload length in bytes.
func (d Datagram) Len() int {
	return len(d.Payload)
}
