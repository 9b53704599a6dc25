package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/backup"
	"github.com/chapelhq/vestry/internal/units"
)

type commandBackupCreate struct {
	kind string
}

func (c *commandBackupCreate) setup(a *App, parent commandParent) {
	cmd := parent.Command("create", "Create a new backup archive.")
	cmd.Flag("type", "Backup type").Default(string(backup.KindManual)).
		EnumVar(&c.kind,
			string(backup.KindManual),
			string(backup.KindScheduled),
			string(backup.KindEmergency),
			string(backup.KindAutomatic))
	cmd.Action(a.action(c.run))
}

func (c *commandBackupCreate) run(ctx context.Context, svc *services) error {
	res, err := svc.backups.CreateBackup(ctx, backup.Kind(c.kind), svc.actor)
	if err != nil {
		return errors.Wrap(err, "error creating backup")
	}

	color.Green("Created %v (%v)", res.Name, units.BytesString(res.Size))

	return nil
}
