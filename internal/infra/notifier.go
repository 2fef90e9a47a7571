package infra

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

const (
	notifyDest      = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	notifyTimeoutMs = 5000
)

// DBusNotifier delivers native desktop notifications over the session bus
// (org.freedesktop.Notifications). It is the fallback path when no shell is
// connected to render toasts itself.
type DBusNotifier struct {
	conn   *dbus.Conn
	logger *zap.Logger
}

// NewDBusNotifier connects to the session bus. Headless hosts have none, so
// a connection failure is returned for the caller to degrade on.
func NewDBusNotifier(logger *zap.Logger) (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBusNotifier{conn: conn, logger: logger}, nil
}

// Notify posts the notification and does not wait for user interaction.
func (d *DBusNotifier) Notify(n domain.Notification) error {
	obj := d.conn.Object(notifyDest, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyMethod, 0,
		domain.ProductName, // app name
		uint32(0),          // no notification to replace
		"",                 // icon
		n.Title,
		n.Body,
		[]string{},
		map[string]dbus.Variant{},
		int32(notifyTimeoutMs),
	)
	if call.Err != nil {
		return fmt.Errorf("dbus notify: %w", call.Err)
	}
	d.logger.Debug("native notification posted", zap.String("title", n.Title))
	return nil
}

// Close releases the bus connection.
func (d *DBusNotifier) Close() error { return d.conn.Close() }

var _ domain.Notifier = (*DBusNotifier)(nil)

// NopNotifier swallows notifications on hosts with no notification service.
type NopNotifier struct{}

func (NopNotifier) Notify(domain.Notification) error { return nil }

var _ domain.Notifier = NopNotifier{}
