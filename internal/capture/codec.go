package capture

import (
	"fmt"
	"strings"
)

// VideoCodec selects the encoder used by the native recorder.
type VideoCodec int32

const (
	CodecH264        VideoCodec = 0
	CodecHEVC        VideoCodec = 1
	CodecProRes422   VideoCodec = 2
	CodecProRes422HQ VideoCodec = 3
)

// AllCodecs lists every codec in code order.
var AllCodecs = []VideoCodec{CodecH264, CodecHEVC, CodecProRes422, CodecProRes422HQ}

// Code is the integer passed across the native boundary.
func (c VideoCodec) Code() int32 {
	return int32(c)
}

// CodecFromCode is the inverse of Code.
func CodecFromCode(code int32) (VideoCodec, error) {
	c := VideoCodec(code)
	if !c.Valid() {
		return 0, InvalidConfig(fmt.Sprintf("unknown codec code %d", code))
	}
	return c, nil
}

func (c VideoCodec) Valid() bool {
	return c >= CodecH264 && c <= CodecProRes422HQ
}

// Extension returns the container extension for files written with c.
func (c VideoCodec) Extension() string {
	switch c {
	case CodecProRes422, CodecProRes422HQ:
		return "mov"
	default:
		return "mp4"
	}
}

func (c VideoCodec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecHEVC:
		return "hevc"
	case CodecProRes422:
		return "prores422"
	case CodecProRes422HQ:
		return "prores422hq"
	default:
		return fmt.Sprintf("codec(%d)", int32(c))
	}
}

// ParseCodec accepts the canonical names plus the common aliases
// (avc, h265, prores_422, ...), case-insensitively.
func ParseCodec(s string) (VideoCodec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h264", "h.264", "avc":
		return CodecH264, nil
	case "hevc", "h265", "h.265":
		return CodecHEVC, nil
	case "prores", "prores422", "prores_422":
		return CodecProRes422, nil
	case "prores422hq", "prores_422_hq":
		return CodecProRes422HQ, nil
	default:
		return 0, InvalidConfig(fmt.Sprintf("unknown codec %q", s))
	}
}

func (c VideoCodec) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, InvalidConfig(fmt.Sprintf("unknown codec code %d", int32(c)))
	}
	return []byte(c.String()), nil
}

func (c *VideoCodec) UnmarshalText(text []byte) error {
	parsed, err := ParseCodec(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
