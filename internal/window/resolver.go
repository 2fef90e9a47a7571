// Package window turns raw shell window reports into fully resolved
// descriptors and keeps the daemon fed with them even when the shell does
// not push events on its own.
package window

import (
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// ProcessResolver fills in missing owner metadata by inspecting the owning
// process. Shells on some platforms only report a PID and a title.
type ProcessResolver struct {
	logger *zap.Logger
}

func NewProcessResolver(logger *zap.Logger) *ProcessResolver {
	return &ProcessResolver{logger: logger}
}

// Resolve enriches d in place when the owner name or path is missing and a
// PID is available. Lookup failures leave the descriptor as reported; the
// matcher copes with partial data.
func (r *ProcessResolver) Resolve(d domain.WindowDescriptor) domain.WindowDescriptor {
	if d.OwnerPID <= 0 || (d.OwnerName != "" && d.OwnerPath != "") {
		return d
	}

	proc, err := process.NewProcess(d.OwnerPID)
	if err != nil {
		r.logger.Debug("owner process lookup failed",
			zap.Int32("pid", d.OwnerPID), zap.Error(err))
		return d
	}

	if d.OwnerName == "" {
		if name, err := proc.Name(); err == nil {
			d.OwnerName = name
		}
	}
	if d.OwnerPath == "" {
		if exe, err := proc.Exe(); err == nil {
			d.OwnerPath = exe
		}
	}
	return d
}

var _ domain.WindowResolver = (*ProcessResolver)(nil)
