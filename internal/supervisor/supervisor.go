// Package supervisor owns the lifecycle of the single messaging session:
// connecting, classifying closes, backing off and re-pairing.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/wppdesk/internal/config"
	"github.com/matheus3301/wppdesk/internal/status"
	"github.com/matheus3301/wppdesk/internal/transport"
	"go.uber.org/zap"
)

// ErrNoTransport is returned when the supervisor has no transport handle.
var ErrNoTransport = errors.New("no transport")

const (
	forceResetDelay = 2 * time.Second
	wipeTimeout     = 15 * time.Second
)

// Supervisor is the only writer of the session state machine.
type Supervisor struct {
	mu      sync.Mutex
	tr      transport.Transport
	machine *status.Machine
	cfg     config.Reconnect
	sched   Scheduler
	logger  *zap.Logger

	inFlight  bool
	wiping    bool
	pairing   bool
	halted    bool
	exhausted bool
	stopped   bool

	// wipes tracks background credential wipes started by terminal closes.
	wipes sync.WaitGroup

	attemptSeq uint64
	watchdog   Timer
	retrySeq   uint64
	retry      Timer
	monitor    Timer
}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(sup *Supervisor) { sup.sched = s }
}

// New creates a supervisor for tr. tr may be nil, in which case every
// connection request fails with ErrNoTransport.
func New(tr transport.Transport, machine *status.Machine, cfg config.Reconnect, logger *zap.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		tr:      tr,
		machine: machine,
		cfg:     cfg,
		sched:   realScheduler{},
		logger:  logger.Named("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start makes the first connection attempt and arms the periodic monitor.
// A failed first attempt is left to the backoff sequence.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil && !errors.Is(err, ErrNoTransport) {
		s.logger.Warn("initial connect failed", zap.Error(err))
	}
	s.mu.Lock()
	s.armMonitorLocked()
	s.mu.Unlock()
	return nil
}

// Stop cancels every timer, waits for a running wipe and closes the
// connection.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.stopTimersLocked()
	s.abandonAttemptLocked()
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
	s.mu.Unlock()

	s.wipes.Wait()
	if s.tr != nil {
		s.tr.Disconnect()
	}
}

// CurrentStatus returns the session snapshot without blocking on an attempt.
func (s *Supervisor) CurrentStatus() status.Snapshot {
	return s.machine.Snapshot()
}

// LatestPairingChallenge returns the outstanding pairing token, if any.
func (s *Supervisor) LatestPairingChallenge() (string, bool) {
	tok := s.machine.Snapshot().PairingToken
	return tok, tok != ""
}

// Connect starts a connection attempt unless one is already running or the
// session is up. It clears a previous halt or exhausted backoff.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.tr == nil {
		s.mu.Unlock()
		return ErrNoTransport
	}
	s.halted = false
	if s.exhausted {
		// An operator connect starts a fresh backoff sequence.
		s.exhausted = false
		s.machine.ResetAttempts()
	}
	if !s.canAttemptLocked() {
		s.mu.Unlock()
		return nil
	}
	seq := s.beginAttemptLocked()
	s.mu.Unlock()
	return s.dial(ctx, seq)
}

// ForceReset wipes credentials and the connection, invalidating any pairing
// challenge. With reconnect set a fresh attempt follows shortly.
func (s *Supervisor) ForceReset(ctx context.Context, reconnect bool) error {
	s.mu.Lock()
	if s.tr == nil {
		s.mu.Unlock()
		return ErrNoTransport
	}
	s.logger.Info("forced reset", zap.Bool("reconnect", reconnect))
	s.stopTimersLocked()
	s.abandonAttemptLocked()
	s.pairing = false
	s.halted = !reconnect
	s.exhausted = false
	s.wiping = true
	s.machine.Reset()
	s.mu.Unlock()

	s.tr.Disconnect()
	err := s.tr.WipeCredentials(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wiping = false
	if reconnect && !s.stopped {
		s.scheduleLocked(forceResetDelay)
	}
	return err
}

// Disconnect closes the session on operator request. Nothing reconnects
// until Connect or ForceReset is called.
func (s *Supervisor) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return ErrNoTransport
	}
	s.haltLocked("operator disconnect")
	return nil
}

// HandleEvent feeds a session control event from the transport.
func (s *Supervisor) HandleEvent(evt transport.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	switch e := evt.(type) {
	case transport.Opened:
		s.logger.Info("session opened")
		s.inFlight = false
		s.pairing = false
		s.exhausted = false
		s.stopTimersLocked()
		s.toLocked(status.Connected)
	case transport.PairingCode:
		s.pairing = true
		s.stopWatchdogLocked()
		s.machine.SetPairingToken(e.Token)
	case transport.CredentialsRotated:
		s.logger.Info("pairing completed, credentials stored")
		s.pairing = false
		s.machine.ClearPairingToken()
	case transport.Closed:
		s.closedLocked(e.Reason, e.Detail)
	}
}

func (s *Supervisor) closedLocked(reason transport.Reason, detail string) {
	cur := s.machine.Current()
	policy := PolicyFor(reason)
	s.logger.Info("session closed",
		zap.String("reason", string(reason)),
		zap.String("detail", detail),
		zap.String("state", string(cur)),
		zap.Stringer("action", policy.Action))

	s.abandonAttemptLocked()
	s.pairing = false

	switch policy.Action {
	case Halt:
		s.haltLocked(string(reason))
	case Reset:
		s.resetLocked(policy.Delay)
	case Reconnect:
		if cur != status.Connecting && cur != status.Connected {
			// Stale close for a session we already gave up on.
			return
		}
		s.machine.ClearPairingToken()
		s.toLocked(status.Reconnecting)
		s.scheduleLocked(policy.Delay)
	}
}

// resetLocked returns to Disconnected at once and wipes credentials in the
// background, so event delivery never waits on a logout round trip. The
// re-pair attempt is scheduled once the wipe finishes.
func (s *Supervisor) resetLocked(delay time.Duration) {
	s.stopTimersLocked()
	s.machine.Reset()
	if s.wiping {
		return
	}
	s.wiping = true
	s.wipes.Add(1)
	go func() {
		defer s.wipes.Done()
		s.tr.Disconnect()
		ctx, cancel := context.WithTimeout(context.Background(), wipeTimeout)
		defer cancel()
		if err := s.tr.WipeCredentials(ctx); err != nil {
			s.logger.Error("wipe credentials failed", zap.Error(err))
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.wiping = false
		if !s.stopped {
			s.scheduleLocked(delay)
		}
	}()
}

func (s *Supervisor) haltLocked(why string) {
	s.logger.Warn("session halted", zap.String("why", why))
	s.stopTimersLocked()
	s.abandonAttemptLocked()
	s.pairing = false
	s.halted = true
	s.tr.Disconnect()
	s.machine.ClearPairingToken()
	s.toLocked(status.Disconnected)
}

// canAttemptLocked reports whether a new attempt may start now.
func (s *Supervisor) canAttemptLocked() bool {
	if s.inFlight || s.wiping {
		return false
	}
	switch s.machine.Current() {
	case status.Connected, status.Connecting:
		return false
	}
	return true
}

// beginAttemptLocked marks an attempt in flight and moves to Connecting.
// The caller dials with the returned sequence after releasing the lock.
func (s *Supervisor) beginAttemptLocked() uint64 {
	s.cancelRetryLocked()
	s.inFlight = true
	s.attemptSeq++
	s.toLocked(status.Connecting)
	return s.attemptSeq
}

// abandonAttemptLocked invalidates the attempt in flight, if any, so a
// dial that returns later leaves the state alone.
func (s *Supervisor) abandonAttemptLocked() {
	s.inFlight = false
	s.attemptSeq++
	s.stopWatchdogLocked()
}

// dial runs the transport connect without holding the lock. The result is
// applied only if attempt seq is still the current one.
func (s *Supervisor) dial(ctx context.Context, seq uint64) error {
	err := s.tr.Connect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || seq != s.attemptSeq || !s.inFlight {
		return err
	}
	if err != nil {
		s.logger.Warn("connect attempt failed", zap.Error(err))
		s.inFlight = false
		s.toLocked(status.Disconnected)
		s.backoffLocked()
		return err
	}
	s.armWatchdogLocked(seq)
	return nil
}

// backoffLocked schedules the next attempt of the bounded exponential
// sequence, or marks it exhausted.
func (s *Supervisor) backoffLocked() {
	if s.halted || s.exhausted || s.stopped {
		return
	}
	n := s.machine.IncrementAttempts()
	if n > s.cfg.MaxAttempts {
		s.exhausted = true
		s.logger.Warn("reconnect attempts exhausted", zap.Int("attempts", n-1))
		return
	}
	d := backoffDelay(n, s.cfg.BaseDelay.Duration, s.cfg.MaxDelay.Duration)
	s.logger.Info("scheduling reconnect", zap.Int("attempt", n), zap.Duration("delay", d))
	s.scheduleLocked(d)
}

// scheduleLocked arms the retry timer, superseding any pending one.
func (s *Supervisor) scheduleLocked(d time.Duration) {
	s.cancelRetryLocked()
	s.retrySeq++
	seq := s.retrySeq
	s.retry = s.sched.AfterFunc(d, func() { s.fireRetry(seq) })
}

func (s *Supervisor) fireRetry(seq uint64) {
	s.mu.Lock()
	if s.stopped || seq != s.retrySeq {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	if !s.canAttemptLocked() {
		s.mu.Unlock()
		return
	}
	attempt := s.beginAttemptLocked()
	s.mu.Unlock()
	_ = s.dial(context.Background(), attempt)
}

func (s *Supervisor) armWatchdogLocked(seq uint64) {
	s.stopWatchdogLocked()
	if s.cfg.AttemptTimeout.Duration <= 0 {
		return
	}
	s.watchdog = s.sched.AfterFunc(s.cfg.AttemptTimeout.Duration, func() { s.fireWatchdog(seq) })
}

func (s *Supervisor) fireWatchdog(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || seq != s.attemptSeq || !s.inFlight || s.pairing {
		return
	}
	s.watchdog = nil
	s.logger.Warn("connect attempt abandoned", zap.Duration("after", s.cfg.AttemptTimeout.Duration))
	s.tr.Disconnect()
	s.closedLocked(transport.ReasonTimedOut, "attempt window elapsed")
}

func (s *Supervisor) armMonitorLocked() {
	if s.stopped || s.cfg.MonitorInterval.Duration <= 0 {
		return
	}
	s.monitor = s.sched.AfterFunc(s.cfg.MonitorInterval.Duration, s.tick)
}

// tick is the periodic monitor: a disconnected session with a live
// transport starts the backoff sequence.
func (s *Supervisor) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.armMonitorLocked()
	if s.tr == nil || s.halted || s.exhausted || s.inFlight || s.wiping || s.retry != nil {
		return
	}
	if s.machine.Current() != status.Disconnected {
		return
	}
	s.logger.Debug("monitor found session disconnected")
	s.backoffLocked()
}

func (s *Supervisor) cancelRetryLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.retrySeq++
}

func (s *Supervisor) stopWatchdogLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}

func (s *Supervisor) stopTimersLocked() {
	s.cancelRetryLocked()
	s.stopWatchdogLocked()
}

// toLocked walks the machine to the target state along legal edges.
func (s *Supervisor) toLocked(to status.State) {
	cur := s.machine.Current()
	if cur == to {
		return
	}
	switch {
	case to == status.Connecting && cur == status.Connected:
		_ = s.machine.Transition(status.Reconnecting)
	case to == status.Connected && cur != status.Connecting:
		_ = s.machine.Transition(status.Connecting)
	case to == status.Reconnecting && cur == status.Disconnected:
		_ = s.machine.Transition(status.Connecting)
	}
	if err := s.machine.Transition(to); err != nil {
		s.logger.Debug("state transition skipped", zap.Error(err))
	}
}
