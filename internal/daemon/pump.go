package daemon

import (
	"context"
	"sync"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.uber.org/zap"
)

// SessionHandler consumes session lifecycle events.
type SessionHandler interface {
	HandleEvent(evt transport.Event)
}

// InboundSink consumes inbound messages and receipts.
type InboundSink interface {
	Accept(in transport.Inbound)
	AcceptStatus(sc transport.StatusChanged)
}

const controlBuffer = 64

// Pump drains the transport event stream and routes each event to the
// supervisor or the ingestion pipeline. Session control events are handed
// to their own goroutine, so inbound routing never waits on the
// supervisor; ingestion itself queues work on per-peer lanes.
type Pump struct {
	tr      transport.Transport
	session SessionHandler
	inbound InboundSink
	logger  *zap.Logger

	control chan transport.Event
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPump creates a pump; call Start to begin draining.
func NewPump(tr transport.Transport, session SessionHandler, inbound InboundSink, logger *zap.Logger) *Pump {
	return &Pump{tr: tr, session: session, inbound: inbound, logger: logger.Named("pump")}
}

// Start launches the drain loop and the control loop.
func (p *Pump) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.control = make(chan transport.Event, controlBuffer)
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.runControl(ctx)
	}()
}

// Stop ends the drain loop and waits for it to exit.
func (p *Pump) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pump) run(ctx context.Context) {
	events := p.tr.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			p.route(ctx, evt)
		}
	}
}

// runControl feeds control events to the session handler in arrival order.
func (p *Pump) runControl(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-p.control:
			p.session.HandleEvent(evt)
		}
	}
}

func (p *Pump) route(ctx context.Context, evt transport.Event) {
	switch e := evt.(type) {
	case transport.MessageReceived:
		p.inbound.Accept(e.Message)
	case transport.StatusChanged:
		p.inbound.AcceptStatus(e)
	case transport.Opened, transport.Closed, transport.PairingCode, transport.CredentialsRotated:
		select {
		case p.control <- evt:
		case <-ctx.Done():
		}
	default:
		p.logger.Debug("unhandled transport event", zap.Any("event", evt))
	}
}
