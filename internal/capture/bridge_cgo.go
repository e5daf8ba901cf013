//go:build darwin && cgo && nativecapture

package capture

/*
#cgo CFLAGS: -I${SRCDIR}/../../native/include
#cgo LDFLAGS: -L${SRCDIR}/../../native/lib -lFocusCaptureKit -framework ScreenCaptureKit -framework AVFoundation -framework CoreMedia -framework CoreVideo -framework CoreGraphics -framework Foundation

#include <stdlib.h>
#include <string.h>
#include "FocusCaptureKit.h"
*/
import "C"

import (
	"unsafe"
)

// PlatformBridge returns the bridge to the linked FocusCaptureKit library.
func PlatformBridge() Bridge {
	return cgoBridge{}
}

type cgoBridge struct{}

func (cgoBridge) NewHandle() (Handle, bool) {
	h := C.fck_capture_create()
	if h == nil {
		return nil, false
	}
	return &cgoHandle{ptr: h}, true
}

func (cgoBridge) CheckPermission() bool {
	return bool(C.fck_capture_check_permission())
}

func (cgoBridge) RequestPermission() {
	C.fck_capture_request_permission()
}

func (cgoBridge) ListWindowsJSON() []byte {
	return takeString(C.fck_capture_list_windows_json())
}

func (cgoBridge) ListDisplaysJSON() []byte {
	return takeString(C.fck_capture_list_displays_json())
}

func (cgoBridge) ScreenshotWindow(windowID uint32, outputPath string, cfg ScreenshotConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_screenshot_window(
		C.uint32_t(windowID), path, C.float(cfg.ScaleFactor), C.bool(cfg.CaptureCursor)))
}

func (cgoBridge) ScreenshotDisplay(displayID uint32, outputPath string, cfg ScreenshotConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_screenshot_display(
		C.uint32_t(displayID), path, C.float(cfg.ScaleFactor), C.bool(cfg.CaptureCursor)))
}

func (cgoBridge) ScreenshotRegion(displayID uint32, region Bounds, outputPath string, cfg ScreenshotConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_screenshot_region(
		C.uint32_t(displayID),
		C.int32_t(region.X), C.int32_t(region.Y), C.int32_t(region.Width), C.int32_t(region.Height),
		path, C.float(cfg.ScaleFactor), C.bool(cfg.CaptureCursor)))
}

// takeString copies a library-allocated string and frees the original.
func takeString(s *C.char) []byte {
	if s == nil {
		return nil
	}
	defer C.fck_free_string(s)
	return C.GoBytes(unsafe.Pointer(s), C.int(C.strlen(s)))
}

type cgoHandle struct {
	ptr C.FCKCaptureHandle
}

func (h *cgoHandle) StartWindowRecording(windowID uint32, outputPath string, cfg RecordingConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_start_window_recording(
		h.ptr, C.uint32_t(windowID), path,
		C.uint32_t(cfg.Width), C.uint32_t(cfg.Height), C.uint32_t(cfg.FPS),
		C.uint32_t(cfg.Bitrate), C.uint32_t(cfg.KeyframeInterval), C.int32_t(cfg.Codec.Code()),
		C.bool(cfg.CaptureCursor), C.bool(cfg.CaptureAudio), C.float(cfg.ScaleFactor)))
}

func (h *cgoHandle) StartDisplayRecording(displayID uint32, outputPath string, cfg RecordingConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_start_display_recording(
		h.ptr, C.uint32_t(displayID), path,
		C.uint32_t(cfg.Width), C.uint32_t(cfg.Height), C.uint32_t(cfg.FPS),
		C.uint32_t(cfg.Bitrate), C.uint32_t(cfg.KeyframeInterval), C.int32_t(cfg.Codec.Code()),
		C.bool(cfg.CaptureCursor), C.bool(cfg.CaptureAudio), C.float(cfg.ScaleFactor)))
}

func (h *cgoHandle) StartRegionRecording(displayID uint32, region Bounds, outputPath string, cfg RecordingConfig) int32 {
	path := C.CString(outputPath)
	defer C.free(unsafe.Pointer(path))
	return int32(C.fck_capture_start_region_recording(
		h.ptr, C.uint32_t(displayID),
		C.int32_t(region.X), C.int32_t(region.Y), C.int32_t(region.Width), C.int32_t(region.Height),
		path, C.uint32_t(cfg.FPS), C.uint32_t(cfg.Bitrate), C.uint32_t(cfg.KeyframeInterval),
		C.int32_t(cfg.Codec.Code()), C.bool(cfg.CaptureCursor), C.bool(cfg.CaptureAudio),
		C.float(cfg.ScaleFactor)))
}

func (h *cgoHandle) Stop() int32 {
	return int32(C.fck_capture_stop_recording(h.ptr))
}

func (h *cgoHandle) Cancel() int32 {
	return int32(C.fck_capture_cancel_recording(h.ptr))
}

func (h *cgoHandle) IsRecording() bool {
	return bool(C.fck_capture_is_recording(h.ptr))
}

func (h *cgoHandle) DurationMs() int64 {
	return int64(C.fck_capture_get_recording_duration_ms(h.ptr))
}

func (h *cgoHandle) Destroy() {
	C.fck_capture_destroy(h.ptr)
	h.ptr = nil
}
