// Package window looks up on-screen window geometry from the X server.
// Capture tools that can only record rectangles use it to record a window,
// and screenshots fall back to it where no native engine is present.
package window

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// X11Locator resolves window ids against the X server.
type X11Locator struct {
	conn      *xgb.Conn
	root      xproto.Window
	screen    *xproto.ScreenInfo
	composite bool
	mu        sync.Mutex
	atoms     map[string]xproto.Atom
	closed    bool
}

// NewX11Locator connects to $DISPLAY.
func NewX11Locator() (*X11Locator, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	l := &X11Locator{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		atoms:  make(map[string]xproto.Atom),
	}

	// Composite lets obscured windows be captured; without it only their
	// visible pixels are read.
	if err := composite.Init(conn); err != nil {
		logger.WithComponent("x11-locator").Debug().Err(err).Msg("Composite extension not available")
	} else {
		l.composite = true
	}
	return l, nil
}

// Close closes the X11 connection
func (l *X11Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.conn.Close()
		l.closed = true
	}
	return nil
}

// WindowBounds returns the window rectangle in root coordinates.
func (l *X11Locator) WindowBounds(windowID uint32) (capture.Bounds, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.boundsLocked(xproto.Window(windowID))
}

func (l *X11Locator) boundsLocked(win xproto.Window) (capture.Bounds, error) {
	geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return capture.Bounds{}, capture.WindowNotFound(uint32(win))
	}

	// Geometry is relative to the parent (often a WM frame); translate the
	// origin into root coordinates.
	origin, err := xproto.TranslateCoordinates(l.conn, win, l.root, 0, 0).Reply()
	if err != nil {
		return capture.Bounds{}, fmt.Errorf("failed to translate window coordinates: %w", err)
	}

	return capture.Bounds{
		X:      int32(origin.DstX),
		Y:      int32(origin.DstY),
		Width:  int32(geom.Width),
		Height: int32(geom.Height),
	}, nil
}

// ListWindows returns client windows from EWMH _NET_CLIENT_LIST, falling
// back to the root's children on window managers without EWMH.
func (l *X11Locator) ListWindows() ([]capture.WindowDescriptor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := logger.WithComponent("x11-locator")

	ids, err := l.clientListLocked()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, treeErr := xproto.QueryTree(l.conn, l.root).Reply()
		if treeErr != nil {
			return nil, fmt.Errorf("failed to query window tree: %w", treeErr)
		}
		ids = tree.Children
	}

	windows := make([]capture.WindowDescriptor, 0, len(ids))
	for _, win := range ids {
		bounds, err := l.boundsLocked(win)
		if err != nil {
			continue
		}
		title := l.titleLocked(win)
		owner := l.classLocked(win)
		// Skip windows without titles or class (usually not user windows)
		if title == "" && owner == "" {
			continue
		}
		windows = append(windows, capture.WindowDescriptor{
			ID:                 uint32(win),
			Title:              title,
			OwnerName:          owner,
			X:                  bounds.X,
			Y:                  bounds.Y,
			Width:              bounds.Width,
			Height:             bounds.Height,
			BackingScaleFactor: 1.0,
		})
	}

	log.Debug().Int("count", len(windows)).Msg("Listed X11 windows")
	return windows, nil
}

func (l *X11Locator) clientListLocked() ([]xproto.Window, error) {
	atom, err := l.atomLocked("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(l.conn, false, l.root, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	raw := parseWindowIDs(reply.Value)
	ids := make([]xproto.Window, len(raw))
	for i, id := range raw {
		ids[i] = xproto.Window(id)
	}
	return ids, nil
}

func (l *X11Locator) titleLocked(win xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if title, err := l.stringPropertyLocked(win, name); err == nil && title != "" {
			return title
		}
	}
	return ""
}

func (l *X11Locator) classLocked(win xproto.Window) string {
	raw, err := l.stringPropertyLocked(win, "WM_CLASS")
	if err != nil {
		return ""
	}
	return parseWMClass(raw)
}

func (l *X11Locator) atomLocked(name string) (xproto.Atom, error) {
	if atom, ok := l.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(l.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	l.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (l *X11Locator) stringPropertyLocked(win xproto.Window, name string) (string, error) {
	atom, err := l.atomLocked(name)
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(l.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", name)
	}
	return string(reply.Value), nil
}

// parseWindowIDs decodes a 32-bit little-endian window id array.
func parseWindowIDs(value []byte) []uint32 {
	ids := make([]uint32, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		ids = append(ids, binary.LittleEndian.Uint32(value[i:i+4]))
	}
	return ids
}

// parseWMClass picks the class from "instance\0class\0", falling back to
// the instance.
func parseWMClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}
