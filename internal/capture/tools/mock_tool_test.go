//go:build unix

package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTool writes its last argument when interrupted, like a recorder
// finalizing its output file.
const mockTool = `#!/bin/sh
out=""
for a in "$@"; do out="$a"; done
trap 'echo finalized > "$out"; exit 0' INT
while true; do sleep 0.05; done
`

func writeMockTool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mock_ffmpeg.sh")
	require.NoError(t, os.WriteFile(path, []byte(mockTool), 0755))
	return path
}

func TestScreenRecorder_MockToolFinalizesOnTerminate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "recording.mp4")
	r := &ScreenRecorder{Platform: "linux", FFmpegPath: writeMockTool(t), X11Display: ":99"}

	p, err := r.Launch(context.Background(), capture.Target{Kind: capture.TargetMainDisplay}, out, capture.DefaultRecordingConfig())
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, p.Terminate())
	require.NoError(t, process.Wait(context.Background(), p, 5*time.Second))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "finalized\n", string(data))
}

func TestWebcam_MockToolKilled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "webcam.mp4")
	w := &Webcam{Platform: "linux", FFmpegPath: writeMockTool(t)}

	p, err := w.Spawn(context.Background(), out, "")
	require.NoError(t, err)

	require.NoError(t, p.Kill())
	require.NoError(t, process.Wait(context.Background(), p, 5*time.Second))
	assert.NoFileExists(t, out)
}
