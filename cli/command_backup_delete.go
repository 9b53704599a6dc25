package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

type commandBackupDelete struct {
	path string
}

func (c *commandBackupDelete) setup(a *App, parent commandParent) {
	cmd := parent.Command("delete", "Delete a backup archive.")
	cmd.Arg("path", "Path to the archive to delete").Required().StringVar(&c.path)
	cmd.Action(a.action(c.run))
}

func (c *commandBackupDelete) run(ctx context.Context, svc *services) error {
	if err := svc.backups.Delete(ctx, c.path, svc.actor); err != nil {
		return errors.Wrap(err, "error deleting backup")
	}

	color.Green("Deleted %v", c.path)

	return nil
}
