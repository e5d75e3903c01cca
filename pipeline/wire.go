package pipeline

import "github.com/tembolo1284/matchengine/domain"

// Encoder formats one OutputMessage into wire bytes (§6: CSV by default,
// binary with --binary). The pipeline core never depends on a concrete
// wire format — only on this interface — so CSV/binary codecs and tests
// can each supply their own.
type Encoder interface {
	Encode(msg domain.OutputMessage) []byte
}

// MulticastSender delivers one already-encoded payload to the configured
// multicast group (§6). Implementations own their own sequence-number
// bookkeeping for receiver-side gap detection.
type MulticastSender interface {
	Send(payload []byte) error
}

// NopMulticastSender discards everything sent to it. It is the default
// when multicast is disabled at startup.
type NopMulticastSender struct{}

// Send implements MulticastSender by discarding payload.
func (NopMulticastSender) Send([]byte) error { return nil }
