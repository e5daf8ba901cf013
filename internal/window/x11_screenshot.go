package window

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// RootDisplayID is the id the X11 root screen is reported under.
const RootDisplayID uint32 = 1

// X11Screenshots serves screenshots from the X server and delegates
// everything else to the wrapped provider. X11 coordinates are physical
// pixels, so captures are taken at 1x and the cursor is never drawn.
type X11Screenshots struct {
	capture.Provider
	locator *X11Locator
}

func NewX11Screenshots(provider capture.Provider, locator *X11Locator) *X11Screenshots {
	return &X11Screenshots{Provider: provider, locator: locator}
}

// ListDisplays reports the root screen as the only display.
func (s *X11Screenshots) ListDisplays() ([]capture.DisplayDescriptor, error) {
	w, h := s.locator.ScreenSize()
	return []capture.DisplayDescriptor{{
		ID:                 RootDisplayID,
		Name:               "X11 screen",
		Width:              w,
		Height:             h,
		BackingScaleFactor: 1.0,
		IsMain:             true,
	}}, nil
}

func (s *X11Screenshots) ScreenshotWindow(windowID uint32, outputPath string, cfg capture.ScreenshotConfig) error {
	img, err := s.locator.CaptureWindow(windowID)
	if err != nil {
		return err
	}
	return writePNG(outputPath, img)
}

func (s *X11Screenshots) ScreenshotDisplay(displayID uint32, outputPath string, cfg capture.ScreenshotConfig) error {
	if displayID != RootDisplayID {
		return capture.DisplayNotFound(displayID)
	}
	w, h := s.locator.ScreenSize()
	return s.ScreenshotRegion(displayID, capture.Bounds{Width: w, Height: h}, outputPath, cfg)
}

func (s *X11Screenshots) ScreenshotRegion(displayID uint32, region capture.Bounds, outputPath string, cfg capture.ScreenshotConfig) error {
	if displayID != RootDisplayID {
		return capture.DisplayNotFound(displayID)
	}
	w, h := s.locator.ScreenSize()
	clipped, ok := clipRegion(region, w, h)
	if !ok {
		return capture.InvalidConfig(fmt.Sprintf("region %dx%d at (%d, %d) is off screen",
			region.Width, region.Height, region.X, region.Y))
	}

	img, err := s.locator.CaptureRegion(clipped)
	if err != nil {
		return err
	}
	return writePNG(outputPath, img)
}

// ScreenSize returns the root window size in pixels.
func (l *X11Locator) ScreenSize() (int32, int32) {
	return int32(l.screen.WidthInPixels), int32(l.screen.HeightInPixels)
}

// CaptureRegion reads a rectangle of the root window.
func (l *X11Locator) CaptureRegion(region capture.Bounds) (*image.RGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reply, err := xproto.GetImage(
		l.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(l.root),
		int16(region.X), int16(region.Y),
		uint16(region.Width), uint16(region.Height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, capture.ScreenshotFailed(fmt.Sprintf("failed to get image: %v", err))
	}

	return bgraToRGBA(reply.Data, int(region.Width), int(region.Height), l.screen.RootDepth)
}

// CaptureWindow reads a window's contents. Frames and other windows that
// cannot be drawn from are searched for a viewable child.
func (l *X11Locator) CaptureWindow(windowID uint32) (*image.RGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := logger.WithComponent("x11-locator")
	win := xproto.Window(windowID)

	attrs, err := xproto.GetWindowAttributes(l.conn, win).Reply()
	if err != nil {
		return nil, capture.WindowNotFound(windowID)
	}

	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		child, err := l.viewableChildLocked(win)
		if err != nil {
			return nil, capture.ScreenshotFailed(fmt.Sprintf("window %d is not viewable", windowID))
		}
		log.Debug().
			Uint32("window_id", windowID).
			Uint32("child_window_id", uint32(child)).
			Msg("Capturing viewable child window")
		win = child
	}

	geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, capture.WindowNotFound(windowID)
	}

	drawable := l.drawableLocked(win)
	if drawable != xproto.Drawable(win) {
		defer xproto.FreePixmap(l.conn, xproto.Pixmap(drawable))
		defer composite.UnredirectWindow(l.conn, win, composite.RedirectAutomatic)
	}

	reply, err := xproto.GetImage(
		l.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, capture.ScreenshotFailed(fmt.Sprintf("failed to get image: %v", err))
	}

	return bgraToRGBA(reply.Data, int(geom.Width), int(geom.Height), l.screen.RootDepth)
}

// drawableLocked returns the window's composite pixmap when one can be
// named, else the window itself.
func (l *X11Locator) drawableLocked(win xproto.Window) xproto.Drawable {
	if !l.composite {
		return xproto.Drawable(win)
	}

	log := logger.WithComponent("x11-locator")
	if err := composite.RedirectWindowChecked(l.conn, win, composite.RedirectAutomatic).Check(); err != nil {
		log.Debug().Err(err).Uint32("window_id", uint32(win)).Msg("Composite redirect failed, reading window directly")
		return xproto.Drawable(win)
	}

	pixmap, err := xproto.NewPixmapId(l.conn)
	if err == nil {
		err = composite.NameWindowPixmapChecked(l.conn, win, pixmap).Check()
	}
	if err != nil {
		composite.UnredirectWindow(l.conn, win, composite.RedirectAutomatic)
		return xproto.Drawable(win)
	}
	return xproto.Drawable(pixmap)
}

func (l *X11Locator) viewableChildLocked(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(l.conn, parent).Reply()
	if err != nil {
		return 0, err
	}

	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(l.conn, child).Reply()
		if err != nil {
			continue
		}
		geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}
		if attrs.Class == xproto.WindowClassInputOutput && attrs.MapState == xproto.MapStateViewable &&
			geom.Width > 10 && geom.Height > 10 {
			return child, nil
		}
		if grandchild, err := l.viewableChildLocked(child); err == nil {
			return grandchild, nil
		}
	}
	return 0, fmt.Errorf("no viewable child of window %d", parent)
}

// bgraToRGBA converts a ZPixmap reply at depth 24 or 32 to an opaque image.
func bgraToRGBA(data []byte, width, height int, depth byte) (*image.RGBA, error) {
	if depth != 24 && depth != 32 {
		return nil, capture.ScreenshotFailed(fmt.Sprintf("unsupported screen depth %d", depth))
	}
	if len(data) < width*height*4 {
		return nil, capture.ScreenshotFailed(fmt.Sprintf("short image data: %d bytes for %dx%d", len(data), width, height))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		o := i * 4
		img.Pix[o] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o]
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// clipRegion intersects region with a screen of the given size.
func clipRegion(region capture.Bounds, width, height int32) (capture.Bounds, bool) {
	r := image.Rect(int(region.X), int(region.Y), int(region.X+region.Width), int(region.Y+region.Height)).
		Intersect(image.Rect(0, 0, int(width), int(height)))
	if r.Empty() {
		return capture.Bounds{}, false
	}
	return capture.Bounds{X: int32(r.Min.X), Y: int32(r.Min.Y), Width: int32(r.Dx()), Height: int32(r.Dy())}, true
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return capture.ScreenshotFailed(fmt.Sprintf("failed to create %s: %v", path, err))
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return capture.ScreenshotFailed(fmt.Sprintf("failed to encode %s: %v", path, err))
	}
	return f.Close()
}
