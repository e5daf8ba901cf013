package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	p := Select(&fakeBridge{refuse: true})
	assert.Equal(t, "fallback", p.Name())
	assert.False(t, p.Native())

	p = Select(&fakeBridge{})
	assert.Equal(t, "native", p.Name())
	assert.True(t, p.Native())
	require.NoError(t, p.Close())
}

func TestFallbackProvider(t *testing.T) {
	var p Provider = NewFallbackProvider()
	rec := DefaultRecordingConfig()
	shot := DefaultScreenshotConfig()

	assert.True(t, p.CheckPermission())
	p.RequestPermission()

	windows, err := p.ListWindows()
	require.NoError(t, err)
	assert.Empty(t, windows)
	displays, err := p.ListDisplays()
	require.NoError(t, err)
	assert.Empty(t, displays)

	assert.ErrorIs(t, p.StartWindowRecording(1, "a.mp4", rec), ErrPlatformNotSupported)
	assert.ErrorIs(t, p.StartDisplayRecording(1, "a.mp4", rec), ErrPlatformNotSupported)
	assert.ErrorIs(t, p.StartRegionRecording(1, Bounds{Width: 100, Height: 100}, "a.mp4", rec), ErrPlatformNotSupported)
	_, err = p.StopRecording()
	assert.ErrorIs(t, err, ErrPlatformNotSupported)
	assert.ErrorIs(t, p.CancelRecording(), ErrPlatformNotSupported)
	assert.False(t, p.IsRecording())
	assert.Zero(t, p.RecordingDurationMs())

	assert.ErrorIs(t, p.ScreenshotWindow(1, "s.png", shot), ErrPlatformNotSupported)
	assert.ErrorIs(t, p.ScreenshotDisplay(1, "s.png", shot), ErrPlatformNotSupported)
	assert.ErrorIs(t, p.ScreenshotRegion(1, Bounds{X: 0, Y: 0, Width: 100, Height: 100}, "s.png", shot), ErrPlatformNotSupported)
}
