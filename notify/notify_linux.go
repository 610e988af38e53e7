//go:build linux

package notify

import (
	"context"
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
)

const (
	dbusService  = "org.freedesktop.Notifications"
	dbusPath     = "/org/freedesktop/Notifications"
	methodNotify = "org.freedesktop.Notifications.Notify"
	appName      = "tapvoice"
	appIcon      = "audio-input-microphone"
)

type dbusBackend struct {
	conn *dbus.Conn
	// lastID lets a new notification replace the previous one.
	lastID uint32
}

func newBackend() (backend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to D-Bus session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to query D-Bus services: %w", err)
	}
	if !slices.Contains(names, dbusService) {
		conn.Close()
		return nil, fmt.Errorf("notification service %s not available", dbusService)
	}
	return &dbusBackend{conn: conn}, nil
}

func (b *dbusBackend) notify(ctx context.Context, title, body string) error {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(1)),
	}
	call := b.conn.Object(dbusService, dbusPath).CallWithContext(
		ctx, methodNotify, 0,
		appName,
		b.lastID,
		appIcon,
		title,
		body,
		[]string{},
		hints,
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		b.lastID = id
	}
	return nil
}

func (b *dbusBackend) close() error {
	return b.conn.Close()
}
