package capture

import (
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// NativeProvider is the Provider backed by a NativeEngine.
type NativeProvider struct {
	*NativeEngine
}

func (NativeProvider) Name() string { return "native" }
func (NativeProvider) Native() bool { return true }

// Select probes bridge once and returns the native provider when a handle
// can be acquired, the fallback otherwise. It never fails.
func Select(bridge Bridge) Provider {
	log := logger.WithComponent("capture-router")

	engine, err := NewNativeEngine(bridge)
	if err != nil {
		log.Warn().Err(err).Msg("Native capture not available, using fallback provider")
		return NewFallbackProvider()
	}

	log.Info().Msg("Native capture engine initialized")
	return NativeProvider{NativeEngine: engine}
}

// SelectPlatform is Select over the bridge compiled for this platform.
func SelectPlatform() Provider {
	return Select(PlatformBridge())
}
