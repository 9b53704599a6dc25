package cli

import (
	"context"
	"fmt"
)

type commandStats struct{}

func (c *commandStats) setup(a *App, parent commandParent) {
	cmd := parent.Command("stats", "Show aggregate system counts.")
	cmd.Action(a.action(c.run))
}

func (c *commandStats) run(ctx context.Context, svc *services) error {
	st := svc.logs.SystemStats(ctx)

	fmt.Printf("Users:                 %v\n", st.TotalUsers)
	fmt.Printf("Events:                %v\n", st.TotalEvents)
	fmt.Printf("Messages:              %v\n", st.TotalMessages)
	fmt.Printf("Security events (7d):  %v\n", st.SecurityEventsWeek)

	return nil
}
