package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// ResetCore guarantees an empty core: an existing core is unloaded with its
// data, then the core is always created fresh from configSet. A core that is
// already gone when the unload arrives is not an error.
func ResetCore(ctx context.Context, admin CoreAdmin, core, configSet string, logger *slog.Logger) error {
	status, err := admin.CoreStatus(ctx, core)
	if err != nil {
		return fmt.Errorf("failed to get status of core %s: %w", core, err)
	}

	if status.Present {
		logger.Info("unloading core", "core", core, "uptime", status.Uptime)
		if err := admin.UnloadCore(ctx, core); err != nil {
			if !IsNotFound(err) {
				return fmt.Errorf("failed to unload core %s: %w", core, err)
			}
			logger.Warn("core was not loaded, skipping unload", "core", core, "error", err)
		}
	} else {
		logger.Debug("core not present", "core", core)
	}

	logger.Info("creating core", "core", core, "config_set", configSet)
	if err := admin.CreateCore(ctx, core, configSet); err != nil {
		return fmt.Errorf("failed to create core %s: %w", core, err)
	}
	return nil
}
