// Package portal talks to xdg-desktop-portal over the D-Bus session bus.
package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/godbus/dbus/v5"
)

// Portal D-Bus constants
const (
	portalService = "org.freedesktop.portal.Desktop"
	portalPath    = "/org/freedesktop/portal/desktop"
	cameraIface   = "org.freedesktop.portal.Camera"
	requestIface  = "org.freedesktop.portal.Request"
)

var requestCounter atomic.Uint64

// requestToken is unique per request within the process, as the portal
// derives the request object path from it.
func requestToken() string {
	return fmt.Sprintf("focusrecorder%d_%d", os.Getpid(), requestCounter.Add(1))
}

// portalObject is the subset of dbus.BusObject used here.
type portalObject interface {
	GetProperty(p string) (dbus.Variant, error)
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Camera answers whether a camera exists and asks the portal for access.
type Camera struct {
	conn *dbus.Conn
	obj  portalObject
}

// NewCamera connects to the session bus.
func NewCamera() (*Camera, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Camera{
		conn: conn,
		obj:  conn.Object(portalService, portalPath),
	}, nil
}

// Close closes the portal connection
func (c *Camera) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// CameraPresent reads the portal's IsCameraPresent property.
func (c *Camera) CameraPresent(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := c.obj.GetProperty(cameraIface + ".IsCameraPresent")
	if err != nil {
		return false, fmt.Errorf("failed to read IsCameraPresent: %w", err)
	}
	present, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected IsCameraPresent type: %T", v.Value())
	}
	return present, nil
}

// RequestAccess asks the portal for camera access and waits for the
// user's answer or ctx.
func (c *Camera) RequestAccess(ctx context.Context) (bool, error) {
	if c.conn == nil {
		return false, errors.New("portal not connected")
	}

	log := logger.WithComponent("portal")

	responseChan := make(chan *dbus.Signal, 10)

	// Add match rule for Response signals
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	} else {
		defer func() {
			if err := c.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, matchRule).Err; err != nil {
				log.Debug().Err(err).Msg("Failed to remove match rule")
			}
		}()
	}

	c.conn.Signal(responseChan)
	defer c.conn.RemoveSignal(responseChan)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(requestToken()),
	}

	var requestPath dbus.ObjectPath
	if err := c.obj.CallWithContext(ctx, cameraIface+".AccessCamera", 0, options).Store(&requestPath); err != nil {
		return false, fmt.Errorf("AccessCamera call failed: %w", err)
	}

	log.Info().Str("request_path", string(requestPath)).Msg("Waiting for camera access response")

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			return responseGranted(sig.Body)
		}
	}
}

// responseGranted decodes a Request.Response body; code 0 means granted.
func responseGranted(body []interface{}) (bool, error) {
	if len(body) < 1 {
		return false, errors.New("invalid portal response")
	}
	code, ok := body[0].(uint32)
	if !ok {
		return false, fmt.Errorf("unexpected response code type: %T", body[0])
	}
	return code == 0, nil
}
