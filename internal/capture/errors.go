package capture

import (
	"errors"
	"fmt"
)

// Kind classifies a capture failure. The set is closed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotAuthorized
	KindInvalidConfig
	KindRecordingFailed
	KindEncodingFailed
	KindNoRecording
	KindNoActiveRecording
	KindScreenshotFailed
	KindWindowNotFound
	KindDisplayNotFound
	KindPlatformNotSupported
	KindRecordingInProgress
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindNotAuthorized:        "not_authorized",
	KindInvalidConfig:        "invalid_config",
	KindRecordingFailed:      "recording_failed",
	KindEncodingFailed:       "encoding_failed",
	KindNoRecording:          "no_recording",
	KindNoActiveRecording:    "no_active_recording",
	KindScreenshotFailed:     "screenshot_failed",
	KindWindowNotFound:       "window_not_found",
	KindDisplayNotFound:      "display_not_found",
	KindPlatformNotSupported: "platform_not_supported",
	KindRecordingInProgress:  "recording_in_progress",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type surfaced by the capture layer and the
// session manager. ID is set for WindowNotFound/DisplayNotFound, Code for
// Unknown, Detail for RecordingFailed/ScreenshotFailed.
type Error struct {
	Kind   Kind
	Detail string
	ID     uint32
	Code   int32
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotAuthorized:
		return "screen capture permission not granted"
	case KindInvalidConfig:
		if e.Detail != "" {
			return "invalid capture configuration: " + e.Detail
		}
		return "invalid capture configuration"
	case KindRecordingFailed:
		return "recording failed: " + e.Detail
	case KindEncodingFailed:
		return "encoding failed"
	case KindNoRecording:
		return "no recording in progress"
	case KindNoActiveRecording:
		return "no active recording session"
	case KindScreenshotFailed:
		return "screenshot failed: " + e.Detail
	case KindWindowNotFound:
		return fmt.Sprintf("window not found: %d", e.ID)
	case KindDisplayNotFound:
		return fmt.Sprintf("display not found: %d", e.ID)
	case KindPlatformNotSupported:
		return "platform not supported"
	case KindRecordingInProgress:
		return "a recording is already in progress"
	default:
		return fmt.Sprintf("unknown capture error (code %d)", e.Code)
	}
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrWindowNotFound)
// holds regardless of the window id carried.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotAuthorized        = &Error{Kind: KindNotAuthorized}
	ErrInvalidConfig        = &Error{Kind: KindInvalidConfig}
	ErrRecordingFailed      = &Error{Kind: KindRecordingFailed}
	ErrEncodingFailed       = &Error{Kind: KindEncodingFailed}
	ErrNoRecording          = &Error{Kind: KindNoRecording}
	ErrNoActiveRecording    = &Error{Kind: KindNoActiveRecording}
	ErrScreenshotFailed     = &Error{Kind: KindScreenshotFailed}
	ErrWindowNotFound       = &Error{Kind: KindWindowNotFound}
	ErrDisplayNotFound      = &Error{Kind: KindDisplayNotFound}
	ErrPlatformNotSupported = &Error{Kind: KindPlatformNotSupported}
	ErrRecordingInProgress  = &Error{Kind: KindRecordingInProgress}
	ErrUnknown              = &Error{Kind: KindUnknown}
)

var errEngineClosed = &Error{Kind: KindRecordingFailed, Detail: "capture engine closed"}

// ErrEngineUnavailable is returned when the native capture handle cannot be
// acquired. It only ever reaches provider selection.
var ErrEngineUnavailable = errors.New("native capture engine unavailable")

func InvalidConfig(detail string) error {
	return &Error{Kind: KindInvalidConfig, Detail: detail}
}

func RecordingFailed(detail string) error {
	return &Error{Kind: KindRecordingFailed, Detail: detail}
}

func ScreenshotFailed(detail string) error {
	return &Error{Kind: KindScreenshotFailed, Detail: detail}
}

func WindowNotFound(id uint32) error {
	return &Error{Kind: KindWindowNotFound, ID: id}
}

func DisplayNotFound(id uint32) error {
	return &Error{Kind: KindDisplayNotFound, ID: id}
}

func Unknown(code int32) error {
	return &Error{Kind: KindUnknown, Code: code}
}

// Native status codes.
const (
	codeSuccess          int32 = 0
	codeNotAuthorized    int32 = 1
	codeInvalidConfig    int32 = 2
	codeRecordingFailed  int32 = 3
	codeEncodingFailed   int32 = 4
	codeNoRecording      int32 = 5
	codeScreenshotFailed int32 = 6
	codeWindowNotFound   int32 = 7
	codeDisplayNotFound  int32 = 8
)

// FromCode maps a native status code to an error, nil for success.
// The wire carries no ids; callers that know which window or display was
// addressed use mapCode.
func FromCode(code int32) error {
	return mapCode(code, 0, 0)
}

func mapCode(code int32, windowID, displayID uint32) error {
	switch code {
	case codeSuccess:
		return nil
	case codeNotAuthorized:
		return &Error{Kind: KindNotAuthorized}
	case codeInvalidConfig:
		return &Error{Kind: KindInvalidConfig}
	case codeRecordingFailed:
		return RecordingFailed("native recorder reported failure")
	case codeEncodingFailed:
		return &Error{Kind: KindEncodingFailed}
	case codeNoRecording:
		return &Error{Kind: KindNoRecording}
	case codeScreenshotFailed:
		return ScreenshotFailed("native screenshot reported failure")
	case codeWindowNotFound:
		return WindowNotFound(windowID)
	case codeDisplayNotFound:
		return DisplayNotFound(displayID)
	default:
		return Unknown(code)
	}
}

// KindOf returns the Kind of err, KindUnknown when err is not a capture error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
