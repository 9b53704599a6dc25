package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type commandBackupList struct{}

func (c *commandBackupList) setup(a *App, parent commandParent) {
	cmd := parent.Command("list", "List backup archives, newest first.")
	cmd.Action(a.action(c.run))
}

func (c *commandBackupList) run(ctx context.Context, svc *services) error {
	infos, err := svc.backups.List(ctx)
	if err != nil {
		return errors.Wrap(err, "error listing backups")
	}

	if len(infos) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	for _, i := range infos {
		fmt.Printf("%-45v %-12v %v %10v\n", i.Name, i.Type, i.Timestamp, i.SizeString)
	}

	return nil
}
