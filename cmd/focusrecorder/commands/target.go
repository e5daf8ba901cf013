package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/spf13/pflag"
)

// targetFlags are the --window/--display/--region flags shared by record
// and screenshot.
type targetFlags struct {
	window  uint32
	display uint32
	region  string
}

func (t *targetFlags) register(fs *pflag.FlagSet) {
	fs.Uint32Var(&t.window, "window", 0, "window id to capture (see `focusrecorder windows`)")
	fs.Uint32Var(&t.display, "display", 0, "display id to capture (see `focusrecorder displays`)")
	fs.StringVar(&t.region, "region", "", "region to capture as x,y,width,height (on --display, else the main display)")
}

// resolve applies the usual precedence to the flags that were set.
func (t *targetFlags) resolve(fs *pflag.FlagSet) (capture.Target, error) {
	var windowID, displayID *uint32
	var bounds *capture.Bounds

	if fs.Changed("window") {
		windowID = &t.window
	}
	if fs.Changed("display") {
		displayID = &t.display
	}
	if fs.Changed("region") {
		b, err := parseRegion(t.region)
		if err != nil {
			return capture.Target{}, err
		}
		bounds = &b
	}
	return capture.ResolveTarget(windowID, displayID, bounds), nil
}

// parseRegion parses "x,y,width,height".
func parseRegion(s string) (capture.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return capture.Bounds{}, capture.InvalidConfig(fmt.Sprintf("region %q: want x,y,width,height", s))
	}

	var v [4]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return capture.Bounds{}, capture.InvalidConfig(fmt.Sprintf("region %q: %v", s, err))
		}
		v[i] = int32(n)
	}

	b := capture.Bounds{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if b.Empty() {
		return capture.Bounds{}, capture.InvalidConfig(fmt.Sprintf("region %q: width and height must be positive", s))
	}
	return b, nil
}
