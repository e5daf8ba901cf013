package capture

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCode(t *testing.T) {
	require.NoError(t, FromCode(0))

	tests := []struct {
		code int32
		want *Error
	}{
		{1, ErrNotAuthorized},
		{2, ErrInvalidConfig},
		{3, ErrRecordingFailed},
		{4, ErrEncodingFailed},
		{5, ErrNoRecording},
		{6, ErrScreenshotFailed},
		{7, ErrWindowNotFound},
		{8, ErrDisplayNotFound},
		{9, ErrUnknown},
		{-1, ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			err := FromCode(tt.code)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.Kind, KindOf(err))
		})
	}
}

func TestFromCode_UnknownKeepsCode(t *testing.T) {
	var ce *Error
	require.True(t, errors.As(FromCode(42), &ce))
	assert.Equal(t, int32(42), ce.Code)
	assert.Contains(t, ce.Error(), "42")
}

func TestError_IsMatchesKindNotPayload(t *testing.T) {
	err := fmt.Errorf("starting: %w", WindowNotFound(7))

	assert.ErrorIs(t, err, ErrWindowNotFound)
	assert.NotErrorIs(t, err, ErrDisplayNotFound)
	assert.Equal(t, "starting: window not found: 7", err.Error())
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, "platform_not_supported", KindPlatformNotSupported.String())
}
