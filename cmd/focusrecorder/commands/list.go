package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture/tools"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List capturable windows",
	Long: `List the windows that can be recorded or captured.

The native capture engine is queried by default. Where it is unavailable
the list is empty; --source x11 asks the X server directly instead.`,
	Example: `  # List windows in table format (default)
  focusrecorder windows

  # List windows in JSON format
  focusrecorder windows --format json

  # List X11 windows
  focusrecorder windows --source x11`,
	RunE: runWindows,
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List displays",
	Example: `  focusrecorder displays
  focusrecorder displays --format json`,
	RunE: runDisplays,
}

var devicesCmd = &cobra.Command{
	Use:   "devices [video|audio]",
	Short: "List cameras and audio inputs",
	Long: `List capture devices. The ID column is what --webcam-device and the
webcam.device setting accept.`,
	Example: `  # List cameras (default)
  focusrecorder devices

  # List microphones as JSON
  focusrecorder devices audio --format json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(tools.VideoDevice), string(tools.AudioDevice)},
	RunE:      runDevices,
}

var (
	listFormat string
	listSource string
)

func init() {
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(displaysCmd)
	rootCmd.AddCommand(devicesCmd)

	windowsCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	windowsCmd.Flags().StringVar(&listSource, "source", "native", "window source (native or x11)")
	displaysCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	devicesCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	lister, err := a.windowLister(listSource)
	if err != nil {
		return err
	}
	windows, err := lister.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	return render(cmd.OutOrStdout(), listFormat, windows, func(w io.Writer) {
		printWindowsTable(w, windows)
	})
}

func runDisplays(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	displays, err := a.provider.ListDisplays()
	if err != nil {
		return fmt.Errorf("failed to list displays: %w", err)
	}

	return render(cmd.OutOrStdout(), listFormat, displays, func(w io.Writer) {
		printDisplaysTable(w, displays)
	})
}

func runDevices(cmd *cobra.Command, args []string) error {
	kind := tools.VideoDevice
	if len(args) == 1 {
		kind = tools.DeviceKind(args[0])
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	devices, err := a.devices().Devices(cmd.Context(), kind)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	return render(cmd.OutOrStdout(), listFormat, devices, func(w io.Writer) {
		printDevicesTable(w, devices)
	})
}

// render writes v as JSON or calls table.
func render(out io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "table":
		table(out)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}

func printWindowsTable(out io.Writer, windows []capture.WindowDescriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tOWNER\tTITLE\tGEOMETRY")
	fmt.Fprintln(w, "--\t-----\t-----\t--------")

	for _, win := range windows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%dx%d at (%d, %d)\n",
			win.ID, win.OwnerName, win.Title, win.Width, win.Height, win.X, win.Y)
	}
	if len(windows) == 0 {
		fmt.Fprintln(os.Stderr, "No windows found")
	}
}

func printDisplaysTable(out io.Writer, displays []capture.DisplayDescriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tSIZE\tSCALE\tMAIN")
	fmt.Fprintln(w, "--\t----\t----\t-----\t----")

	for _, d := range displays {
		main := "No"
		if d.IsMain {
			main = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%dx%d\t%.1f\t%s\n", d.ID, d.Name, d.Width, d.Height, d.BackingScaleFactor, main)
	}
	if len(displays) == 0 {
		fmt.Fprintln(os.Stderr, "No displays found")
	}
}

func printDevicesTable(out io.Writer, devices []tools.Device) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME")
	fmt.Fprintln(w, "--\t----")

	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Name)
	}
	if len(devices) == 0 {
		fmt.Fprintln(os.Stderr, "No devices found")
	}
}
