// Package screenshot takes single-frame captures through a capture provider
// and renders thumbnails for them.
package screenshot

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"golang.org/x/image/draw"
)

// DefaultThumbnailWidth is the width thumbnails are scaled down to.
const DefaultThumbnailWidth = 320

// Service captures screenshots. It holds no state of its own and never
// touches the recording session.
type Service struct {
	provider capture.Provider
}

func NewService(provider capture.Provider) *Service {
	return &Service{provider: provider}
}

func (s *Service) Window(ctx context.Context, windowID uint32, path string, cfg capture.ScreenshotConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.logged("window", path, s.provider.ScreenshotWindow(windowID, path, cfg))
}

func (s *Service) Display(ctx context.Context, displayID uint32, path string, cfg capture.ScreenshotConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.logged("display", path, s.provider.ScreenshotDisplay(displayID, path, cfg))
}

func (s *Service) Region(ctx context.Context, displayID uint32, region capture.Bounds, path string, cfg capture.ScreenshotConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.logged("region", path, s.provider.ScreenshotRegion(displayID, region, path, cfg))
}

// CaptureMain captures the main display, or the first one listed when none
// is flagged main.
func (s *Service) CaptureMain(ctx context.Context, path string, cfg capture.ScreenshotConfig) error {
	id, err := s.mainDisplayID()
	if err != nil {
		return err
	}
	return s.Display(ctx, id, path, cfg)
}

// mainDisplayID resolves the main display. A provider without a native
// engine lists no displays, so id 0 goes to its primitive and its own
// error comes back.
func (s *Service) mainDisplayID() (uint32, error) {
	displays, err := s.provider.ListDisplays()
	if err != nil {
		return 0, err
	}
	main, ok := capture.MainDisplay(displays)
	if ok {
		return main.ID, nil
	}
	if !s.provider.Native() {
		return 0, nil
	}
	return 0, capture.DisplayNotFound(0)
}

// Capture dispatches on a resolved target.
func (s *Service) Capture(ctx context.Context, target capture.Target, path string, cfg capture.ScreenshotConfig) error {
	switch target.Kind {
	case capture.TargetWindow:
		return s.Window(ctx, target.WindowID, path, cfg)
	case capture.TargetDisplay:
		return s.Display(ctx, target.DisplayID, path, cfg)
	case capture.TargetRegion:
		displayID := target.DisplayID
		if displayID == 0 {
			id, err := s.mainDisplayID()
			if err != nil {
				return err
			}
			displayID = id
		}
		return s.Region(ctx, displayID, target.Region, path, cfg)
	default:
		return s.CaptureMain(ctx, path, cfg)
	}
}

func (s *Service) logged(kind, path string, err error) error {
	log := logger.WithComponent("screenshot")
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Str("path", path).Msg("Screenshot failed")
		return err
	}
	log.Info().Str("kind", kind).Str("path", path).Msg("Screenshot captured")
	return nil
}

// Thumbnail writes a PNG of src scaled to at most maxWidth pixels wide,
// keeping the aspect ratio. Images already narrow enough are copied as is.
func Thumbnail(src, dst string, maxWidth int) error {
	if maxWidth <= 0 {
		maxWidth = DefaultThumbnailWidth
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	out := scaleToWidth(img, maxWidth)

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return f.Close()
}

func scaleToWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
