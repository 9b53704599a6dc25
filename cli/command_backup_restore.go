package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

type commandBackupRestore struct {
	path string
}

func (c *commandBackupRestore) setup(a *App, parent commandParent) {
	cmd := parent.Command("restore", "Restore the live database from a backup archive. A pre-restore snapshot is taken first.")
	cmd.Arg("path", "Path to the archive to restore").Required().StringVar(&c.path)
	cmd.Action(a.action(c.run))
}

func (c *commandBackupRestore) run(ctx context.Context, svc *services) error {
	res, err := svc.backups.Restore(ctx, c.path, svc.actor)
	if err != nil {
		return errors.Wrap(err, "error restoring backup")
	}

	if res.BackupTimestamp != "" {
		color.Cyan("Restored backup created at %v", res.BackupTimestamp)
	}

	if res.DatabaseRestored {
		color.Green("%v", res.Message)
	} else {
		color.Yellow("%v", res.Message)
	}

	return nil
}
