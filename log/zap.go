package log

import (
	"go.uber.org/zap"

	"github.com/qolzam/telar-db/interfaces"
)

// Zap adapts a *zap.Logger to the interfaces.Logger contract so services
// already carrying a zap logger can hand it straight to the database layer.
type Zap struct {
	s *zap.SugaredLogger
}

// NewZap wraps l. The caller keeps ownership of l and its sync lifecycle.
func NewZap(l *zap.Logger) *Zap {
	return &Zap{s: l.Sugar()}
}

func (z *Zap) Debugf(format string, a ...any) { z.s.Debugf(format, a...) }
func (z *Zap) Infof(format string, a ...any)  { z.s.Infof(format, a...) }
func (z *Zap) Warnf(format string, a ...any)  { z.s.Warnf(format, a...) }
func (z *Zap) Errorf(format string, a ...any) { z.s.Errorf(format, a...) }

var _ interfaces.Logger = (*Zap)(nil)
