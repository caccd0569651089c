package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
	"github.com/matheus3301/wppdesk/internal/transport/transporttest"
	"go.uber.org/zap"
)

type recorder struct {
	mu       sync.Mutex
	session  []transport.Event
	inbound  []transport.Inbound
	statuses []transport.StatusChanged
}

func (r *recorder) HandleEvent(evt transport.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = append(r.session, evt)
}

func (r *recorder) Accept(in transport.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbound = append(r.inbound, in)
}

func (r *recorder) AcceptStatus(sc transport.StatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, sc)
}

func (r *recorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.session), len(r.inbound), len(r.statuses)
}

func TestPumpRoutesEvents(t *testing.T) {
	tr := transporttest.New()
	rec := &recorder{}
	p := NewPump(tr, rec, rec, zap.NewNop())
	p.Start(context.Background())
	defer p.Stop()

	tr.Emit(transport.PairingCode{Token: "2@abc"})
	tr.Emit(transport.MessageReceived{Message: transport.Inbound{Peer: peer, ID: "A"}})
	tr.Emit(transport.StatusChanged{Peer: peer, IDs: []string{"A"}, Code: 3})
	tr.Emit(transport.Opened{})
	tr.Emit(transport.Closed{Reason: transport.ReasonConnectionLost})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, i, st := rec.counts(); s == 3 && i == 1 && st == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	s, i, st := rec.counts()
	if s != 3 || i != 1 || st != 1 {
		t.Fatalf("routed session=%d inbound=%d status=%d, want 3/1/1", s, i, st)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.session[0].(transport.PairingCode); !ok {
		t.Errorf("first session event = %T, want PairingCode", rec.session[0])
	}
	if rec.inbound[0].ID != "A" {
		t.Errorf("inbound id = %q, want A", rec.inbound[0].ID)
	}
}

// stuckSession blocks every control event until released.
type stuckSession struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stuckSession) HandleEvent(transport.Event) {
	s.entered <- struct{}{}
	<-s.release
}

func TestPumpInboundNotBlockedBySession(t *testing.T) {
	tr := transporttest.New()
	session := &stuckSession{entered: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &recorder{}
	p := NewPump(tr, session, rec, zap.NewNop())
	p.Start(context.Background())
	defer p.Stop()
	defer close(session.release)

	tr.Emit(transport.PairingCode{Token: "2@abc"})
	select {
	case <-session.entered:
	case <-time.After(time.Second):
		t.Fatal("control event not delivered")
	}

	tr.Emit(transport.MessageReceived{Message: transport.Inbound{Peer: peer, ID: "B"}})
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, i, _ := rec.counts(); i == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("inbound message stalled behind a busy session handler")
}

func TestPumpStopIsIdempotent(t *testing.T) {
	p := NewPump(transporttest.New(), &recorder{}, &recorder{}, zap.NewNop())
	p.Stop()
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
