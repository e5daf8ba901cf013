package capture

import "fmt"

// TargetKind is the kind of surface a recording captures.
type TargetKind int

const (
	TargetMainDisplay TargetKind = iota
	TargetWindow
	TargetDisplay
	TargetRegion
)

func (k TargetKind) String() string {
	switch k {
	case TargetWindow:
		return "window"
	case TargetDisplay:
		return "display"
	case TargetRegion:
		return "region"
	default:
		return "main_display"
	}
}

// Target names what to record. DisplayID 0 on a region means "the main
// display". Region on a window target is an optional bounds hint used by
// launchers that can only record rectangles.
type Target struct {
	Kind      TargetKind
	WindowID  uint32
	DisplayID uint32
	Region    Bounds
}

// ResolveTarget applies the request precedence: a window id wins, then
// non-empty bounds (on the given display, if any), then a display id, then
// the main display.
func ResolveTarget(windowID, displayID *uint32, bounds *Bounds) Target {
	var region Bounds
	if bounds != nil {
		region = *bounds
	}

	switch {
	case windowID != nil:
		t := Target{Kind: TargetWindow, WindowID: *windowID}
		if !region.Empty() {
			t.Region = region
		}
		return t
	case !region.Empty():
		t := Target{Kind: TargetRegion, Region: region}
		if displayID != nil {
			t.DisplayID = *displayID
		}
		return t
	case displayID != nil:
		return Target{Kind: TargetDisplay, DisplayID: *displayID}
	default:
		return Target{Kind: TargetMainDisplay}
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetWindow:
		return fmt.Sprintf("window:%d", t.WindowID)
	case TargetDisplay:
		return fmt.Sprintf("display:%d", t.DisplayID)
	case TargetRegion:
		return fmt.Sprintf("region:%d:%d,%d,%dx%d", t.DisplayID, t.Region.X, t.Region.Y, t.Region.Width, t.Region.Height)
	default:
		return "main_display"
	}
}
