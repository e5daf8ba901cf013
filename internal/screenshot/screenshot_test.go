package screenshot

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shot struct {
	kind   string
	id     uint32
	region capture.Bounds
	path   string
}

// fakeProvider records screenshot calls; the rest is the fallback provider.
type fakeProvider struct {
	*capture.FallbackProvider
	displays []capture.DisplayDescriptor
	native   bool
	err      error
	shots    []shot
}

func newFakeProvider(displays ...capture.DisplayDescriptor) *fakeProvider {
	return &fakeProvider{FallbackProvider: capture.NewFallbackProvider(), displays: displays}
}

func (p *fakeProvider) Native() bool { return p.native }

func (p *fakeProvider) ListDisplays() ([]capture.DisplayDescriptor, error) {
	return p.displays, nil
}

func (p *fakeProvider) ScreenshotWindow(id uint32, path string, _ capture.ScreenshotConfig) error {
	p.shots = append(p.shots, shot{kind: "window", id: id, path: path})
	return p.err
}

func (p *fakeProvider) ScreenshotDisplay(id uint32, path string, _ capture.ScreenshotConfig) error {
	p.shots = append(p.shots, shot{kind: "display", id: id, path: path})
	return p.err
}

func (p *fakeProvider) ScreenshotRegion(id uint32, region capture.Bounds, path string, _ capture.ScreenshotConfig) error {
	p.shots = append(p.shots, shot{kind: "region", id: id, region: region, path: path})
	return p.err
}

func TestService_PassesThrough(t *testing.T) {
	p := newFakeProvider()
	svc := NewService(p)
	ctx := context.Background()
	cfg := capture.DefaultScreenshotConfig()
	region := capture.Bounds{X: 1, Y: 2, Width: 3, Height: 4}

	require.NoError(t, svc.Window(ctx, 7, "w.png", cfg))
	require.NoError(t, svc.Display(ctx, 2, "d.png", cfg))
	require.NoError(t, svc.Region(ctx, 2, region, "r.png", cfg))

	assert.Equal(t, []shot{
		{kind: "window", id: 7, path: "w.png"},
		{kind: "display", id: 2, path: "d.png"},
		{kind: "region", id: 2, region: region, path: "r.png"},
	}, p.shots)
}

func TestService_PropagatesErrors(t *testing.T) {
	p := newFakeProvider()
	p.err = capture.WindowNotFound(9)
	svc := NewService(p)

	err := svc.Window(context.Background(), 9, "w.png", capture.DefaultScreenshotConfig())
	require.ErrorIs(t, err, capture.ErrWindowNotFound)
}

func TestService_CancelledContext(t *testing.T) {
	p := newFakeProvider()
	svc := NewService(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, svc.Display(ctx, 1, "d.png", capture.DefaultScreenshotConfig()), context.Canceled)
	assert.Empty(t, p.shots)
}

func TestService_CaptureMain(t *testing.T) {
	p := newFakeProvider(
		capture.DisplayDescriptor{ID: 1, Width: 100, Height: 100},
		capture.DisplayDescriptor{ID: 5, Width: 100, Height: 100, IsMain: true},
	)
	svc := NewService(p)

	require.NoError(t, svc.CaptureMain(context.Background(), "m.png", capture.DefaultScreenshotConfig()))
	require.Len(t, p.shots, 1)
	assert.Equal(t, uint32(5), p.shots[0].id)
}

func TestService_CaptureMainNoDisplays(t *testing.T) {
	p := newFakeProvider()
	p.native = true
	svc := NewService(p)

	err := svc.CaptureMain(context.Background(), "m.png", capture.DefaultScreenshotConfig())
	assert.ErrorIs(t, err, capture.ErrDisplayNotFound)
	assert.Empty(t, p.shots)
}

func TestService_CaptureMainWithoutEnumeration(t *testing.T) {
	p := newFakeProvider()
	svc := NewService(p)

	require.NoError(t, svc.CaptureMain(context.Background(), "m.png", capture.DefaultScreenshotConfig()))
	assert.Equal(t, []shot{{kind: "display", id: 0, path: "m.png"}}, p.shots)
}

func TestService_CaptureRegionDefaultsToMain(t *testing.T) {
	p := newFakeProvider(capture.DisplayDescriptor{ID: 3, Width: 100, Height: 100})
	svc := NewService(p)
	target := capture.Target{Kind: capture.TargetRegion, Region: capture.Bounds{Width: 10, Height: 10}}

	require.NoError(t, svc.Capture(context.Background(), target, "r.png", capture.DefaultScreenshotConfig()))
	require.Len(t, p.shots, 1)
	assert.Equal(t, "region", p.shots[0].kind)
	assert.Equal(t, uint32(3), p.shots[0].id)
}

func TestService_FallbackNotSupported(t *testing.T) {
	svc := NewService(capture.NewFallbackProvider())
	ctx := context.Background()
	cfg := capture.DefaultScreenshotConfig()
	region := capture.Bounds{Width: 100, Height: 100}

	err := svc.Region(ctx, 1, region, "r.png", cfg)
	assert.ErrorIs(t, err, capture.ErrPlatformNotSupported)

	targets := []capture.Target{
		{Kind: capture.TargetMainDisplay},
		{Kind: capture.TargetRegion, Region: region},
		{Kind: capture.TargetDisplay, DisplayID: 2},
		{Kind: capture.TargetWindow, WindowID: 7},
	}
	for _, target := range targets {
		err := svc.Capture(ctx, target, "shot.png", cfg)
		assert.ErrorIs(t, err, capture.ErrPlatformNotSupported, target.String())
		assert.Equal(t, capture.KindPlatformNotSupported, capture.KindOf(err), target.String())
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func decodedSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}

func TestThumbnail_ScalesDown(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "shot.png")
	dst := filepath.Join(dir, "shot_thumb.png")
	writePNG(t, src, 640, 480)

	require.NoError(t, Thumbnail(src, dst, 160))
	assert.Equal(t, image.Pt(160, 120), decodedSize(t, dst))
}

func TestThumbnail_KeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	dst := filepath.Join(dir, "small_thumb.png")
	writePNG(t, src, 50, 20)

	require.NoError(t, Thumbnail(src, dst, 0))
	assert.Equal(t, image.Pt(50, 20), decodedSize(t, dst))
}

func TestThumbnail_BadInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "not-an-image.png")
	require.NoError(t, os.WriteFile(src, []byte("nope"), 0644))

	assert.Error(t, Thumbnail(src, filepath.Join(dir, "out.png"), 100))
	assert.Error(t, Thumbnail(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"), 100))
}
