package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

type commandLogsCleanup struct{}

func (c *commandLogsCleanup) setup(a *App, parent commandParent) {
	cmd := parent.Command("cleanup", "Delete audit entries older than 90 days and rotated log files older than 30 days.")
	cmd.Action(a.action(c.run))
}

func (c *commandLogsCleanup) run(ctx context.Context, svc *services) error {
	if err := svc.logs.CleanupOldLogs(ctx); err != nil {
		return errors.Wrap(err, "error cleaning up logs")
	}

	color.Green("Log cleanup completed.")

	return nil
}
