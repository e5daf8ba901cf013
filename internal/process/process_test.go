//go:build unix

package process

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmd_TerminateIsGraceful(t *testing.T) {
	c, err := Start("test-proc", "sh", "-c", "trap 'exit 0' INT; while true; do sleep 0.05; done")
	require.NoError(t, err)
	assert.Positive(t, c.PID())

	// give the shell a moment to install its trap
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, c.Terminate())
	require.NoError(t, Wait(context.Background(), c, 5*time.Second))
	assert.Equal(t, 0, c.ExitCode())
	assert.NoError(t, c.Err())
}

func TestCmd_Kill(t *testing.T) {
	c, err := Start("test-proc", "sleep", "30")
	require.NoError(t, err)

	require.NoError(t, c.Kill())
	require.NoError(t, Wait(context.Background(), c, 5*time.Second))
	assert.Error(t, c.Err())

	// signalling an exited process is a no-op
	assert.NoError(t, c.Kill())
	assert.NoError(t, c.Terminate())
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start("test-proc", "/nonexistent/focusrecorder-tool")
	assert.Error(t, err)
}

func TestWait_Timeout(t *testing.T) {
	c, err := Start("test-proc", "sleep", "30")
	require.NoError(t, err)
	defer c.Kill()

	err = Wait(context.Background(), c, 50*time.Millisecond)
	assert.ErrorContains(t, err, "did not exit")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, c, time.Second), context.Canceled)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCmd_LogsStderrBeforeExit(t *testing.T) {
	var out lockedBuffer
	logger.InitWithWriter("debug", false, &out)
	t.Cleanup(func() { logger.Init("info", false) })

	c, err := Start("test-proc", "sh", "-c", "echo starting >&2; echo 'Error: muxer failed' >&2; exit 3")
	require.NoError(t, err)
	require.NoError(t, Wait(context.Background(), c, 5*time.Second))

	// every line is logged by the time Done closes
	logged := out.String()
	assert.Contains(t, logged, "starting")
	assert.Contains(t, logged, "Error: muxer failed")
	assert.Equal(t, 3, c.ExitCode())
	assert.Error(t, c.Err())
}
