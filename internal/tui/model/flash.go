package model

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc/status"
)

const flashTTL = 5 * time.Second

// Notice is a transient status bar message.
type Notice struct {
	Text  string
	Error bool
}

// Flash holds the latest notice until it expires.
type Flash struct {
	mu     sync.Mutex
	notice Notice
	until  time.Time
	now    func() time.Time
}

// Info shows a formatted informational notice.
func (f *Flash) Info(format string, args ...any) {
	f.set(Notice{Text: fmt.Sprintf(format, args...)})
}

// Fail shows "<what> failed: <reason>", using the daemon's status message
// rather than the full RPC error string when there is one.
func (f *Flash) Fail(what string, err error) {
	f.set(Notice{Text: what + " failed: " + status.Convert(err).Message(), Error: true})
}

// Current returns the live notice, if any.
func (f *Flash) Current() (Notice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notice.Text == "" || f.clock().After(f.until) {
		return Notice{}, false
	}
	return f.notice, true
}

func (f *Flash) set(n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = n
	f.until = f.clock().Add(flashTTL)
}

func (f *Flash) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}
