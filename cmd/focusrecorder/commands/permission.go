package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check screen capture and camera permission",
	Example: `  # Check whether screen capture is allowed
  focusrecorder permission

  # Trigger the system permission prompt
  focusrecorder permission --request

  # Also ask the desktop portal for camera access
  focusrecorder permission --camera --request`,
	RunE: runPermission,
}

var (
	permissionRequest bool
	permissionCamera  bool
)

func init() {
	rootCmd.AddCommand(permissionCmd)

	permissionCmd.Flags().BoolVar(&permissionRequest, "request", false, "request permission if not granted")
	permissionCmd.Flags().BoolVar(&permissionCamera, "camera", false, "include camera access via the desktop portal")
}

func runPermission(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{camera: permissionCamera})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	granted := a.provider.CheckPermission()
	if !granted && permissionRequest {
		a.provider.RequestPermission()
		granted = a.provider.CheckPermission()
	}
	fmt.Fprintf(out, "Screen capture (%s): %s\n", a.provider.Name(), yesNo(granted, "granted", "not granted"))

	if !permissionCamera {
		return nil
	}
	if a.camera == nil {
		fmt.Fprintln(out, "Camera: portal not available")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	present, err := a.camera.CameraPresent(ctx)
	if err != nil {
		return fmt.Errorf("failed to query camera: %w", err)
	}
	fmt.Fprintf(out, "Camera present: %s\n", yesNo(present, "yes", "no"))

	if present && permissionRequest {
		allowed, err := a.camera.RequestAccess(ctx)
		if err != nil {
			return fmt.Errorf("failed to request camera access: %w", err)
		}
		fmt.Fprintf(out, "Camera access: %s\n", yesNo(allowed, "granted", "denied"))
	}
	return nil
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
