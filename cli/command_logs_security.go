package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type commandLogsSecurity struct {
	days      int
	eventType string
	userID    string
}

func (c *commandLogsSecurity) setup(a *App, parent commandParent) {
	cmd := parent.Command("security", "Show raw security events.")
	cmd.Flag("days", "Window in days").Default("7").IntVar(&c.days)
	cmd.Flag("type", "Only this event type").StringVar(&c.eventType)
	cmd.Flag("user", "Only this acting user").StringVar(&c.userID)
	cmd.Action(a.action(c.run))
}

func (c *commandLogsSecurity) run(ctx context.Context, svc *services) error {
	entries, err := svc.logs.GetSecurityLogs(ctx, c.days, c.eventType, c.userID)
	if err != nil {
		return errors.Wrap(err, "error fetching security logs")
	}

	for _, e := range entries {
		fmt.Printf("%v %-22v %-10v %v\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.UserID, e.Description)
	}

	return nil
}
