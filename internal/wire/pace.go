package wire

import (
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// MinSendInterval is the minimum spacing between two outbound messages to
// the same vehicle. Slow links drop back-to-back frames.
const MinSendInterval = 20 * time.Millisecond

// PacedSender delays each send so no two messages leave closer than
// MinSendInterval apart.
type PacedSender struct {
	inner Sender

	mu   sync.Mutex
	last time.Time
}

func NewPacedSender(inner Sender) *PacedSender {
	return &PacedSender{inner: inner}
}

func (p *PacedSender) Send(msg message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if wait := MinSendInterval - time.Since(p.last); wait > 0 {
		time.Sleep(wait)
	}
	err := p.inner.Send(msg)
	p.last = time.Now()
	return err
}
