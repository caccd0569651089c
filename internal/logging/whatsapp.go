package logging

import (
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// waLogger routes whatsmeow's printf-style logging into zap.
type waLogger struct {
	s *zap.SugaredLogger
}

// WhatsApp returns a whatsmeow logger writing to l under the given module name.
func WhatsApp(l *zap.Logger, module string) waLog.Logger {
	return &waLogger{s: l.Named(module).Sugar()}
}

func (w *waLogger) Debugf(msg string, args ...any) { w.s.Debugf(msg, args...) }
func (w *waLogger) Infof(msg string, args ...any)  { w.s.Infof(msg, args...) }
func (w *waLogger) Warnf(msg string, args ...any)  { w.s.Warnf(msg, args...) }
func (w *waLogger) Errorf(msg string, args ...any) { w.s.Errorf(msg, args...) }

func (w *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{s: w.s.Named(module)}
}
