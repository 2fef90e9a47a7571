package window

import (
	"time"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// DefaultPollInterval is how long the feed may stay silent before the
// daemon asks the shell for the active window explicitly.
const DefaultPollInterval = time.Second

// Poller is the pull fallback for shells that do not push window changes.
// The daemon drives it from its tick loop; whenever no push event has been
// seen for a full interval it requests the active window over the bridge.
type Poller struct {
	bridge   domain.ShellBridge
	logger   *zap.Logger
	interval time.Duration
	lastPush time.Time
}

func NewPoller(bridge domain.ShellBridge, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{bridge: bridge, logger: logger, interval: interval}
}

// MarkPush records that a pushed window event arrived, postponing the next
// explicit request.
func (p *Poller) MarkPush(now time.Time) { p.lastPush = now }

// Tick requests the active window when the feed has been silent for at
// least one interval. Returns whether a request was sent.
func (p *Poller) Tick(now time.Time) bool {
	if !p.bridge.Available() {
		return false
	}
	if now.Sub(p.lastPush) < p.interval {
		return false
	}
	if err := p.bridge.Send(domain.ChanGetActiveWindow, nil); err != nil {
		p.logger.Warn("active window poll failed", zap.Error(err))
		return false
	}
	p.lastPush = now
	return true
}
