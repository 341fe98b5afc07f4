package wire

import (
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

type stampingSender struct {
	stamps []time.Time
}

func (s *stampingSender) Send(msg message.Message) error {
	s.stamps = append(s.stamps, time.Now())
	return nil
}

func TestPacedSenderSpacesSends(t *testing.T) {
	inner := &stampingSender{}
	p := NewPacedSender(inner)

	for i := 0; i < 4; i++ {
		if err := p.Send(RequestList(1, 190)); err != nil {
			t.Fatal(err)
		}
	}

	for i := 1; i < len(inner.stamps); i++ {
		if gap := inner.stamps[i].Sub(inner.stamps[i-1]); gap < MinSendInterval {
			t.Errorf("sends %d and %d only %v apart", i-1, i, gap)
		}
	}
}
