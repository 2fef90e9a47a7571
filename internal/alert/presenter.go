// Package alert implements the presentation channel for focus-mode popups.
// One alert is visible at a time; a new request replaces the current one and
// restarts the auto-dismiss timer. Nothing is ever queued.
package alert

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// AutoDismissTimeout is how long a popup stays up without user action.
const AutoDismissTimeout = 8 * time.Second

// Presenter owns the single visible alert. Observers receive displayed and
// dismissed callbacks; dismissal acknowledgements carry the request id so the
// session can ignore stale ones.
type Presenter struct {
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	current   *domain.AlertRequest
	dismissAt *time.Timer
	observers []domain.AlertObserver
}

// NewPresenter creates a presenter with the fixed auto-dismiss timeout.
func NewPresenter(logger *zap.Logger) *Presenter {
	return &Presenter{logger: logger, timeout: AutoDismissTimeout}
}

// NewPresenterWithTimeout is for tests that cannot wait eight seconds.
func NewPresenterWithTimeout(logger *zap.Logger, timeout time.Duration) *Presenter {
	return &Presenter{logger: logger, timeout: timeout}
}

// Subscribe registers an observer for displayed/dismissed callbacks.
func (p *Presenter) Subscribe(o domain.AlertObserver) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

// Present shows a new alert, replacing any open one without dismissing it
// through the observer path, and arms the auto-dismiss timer.
func (p *Presenter) Present(req domain.AlertRequest) {
	p.mu.Lock()
	if p.dismissAt != nil {
		p.dismissAt.Stop()
	}
	p.current = &req
	id := req.ID
	p.dismissAt = time.AfterFunc(p.timeout, func() {
		p.Dismiss(id)
	})
	observers := append([]domain.AlertObserver(nil), p.observers...)
	p.mu.Unlock()

	p.logger.Debug("presenting focus alert",
		zap.String("id", req.ID),
		zap.String("app", req.AppName))

	for _, o := range observers {
		o.AlertDisplayed(req)
	}
}

// Dismiss closes the alert with the given id and fires the dismissal
// acknowledgement. Ids that do not match the currently displayed alert are
// ignored.
func (p *Presenter) Dismiss(id string) {
	p.mu.Lock()
	if p.current == nil || p.current.ID != id {
		p.mu.Unlock()
		return
	}
	p.current = nil
	if p.dismissAt != nil {
		p.dismissAt.Stop()
		p.dismissAt = nil
	}
	observers := append([]domain.AlertObserver(nil), p.observers...)
	p.mu.Unlock()

	p.logger.Debug("focus alert dismissed", zap.String("id", id))

	for _, o := range observers {
		o.AlertDismissed(id)
	}
}

// Clear closes any open alert without an id, used when focus mode turns off.
func (p *Presenter) Clear() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	id := p.current.ID
	p.mu.Unlock()
	p.Dismiss(id)
}

// Current returns the open alert, or nil.
func (p *Presenter) Current() *domain.AlertRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}
