package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/auditlog"
)

type commandLogsShow struct {
	date  string
	level string
	limit int
}

func (c *commandLogsShow) setup(a *App, parent commandParent) {
	cmd := parent.Command("show", "Show audit log entries by severity.")
	cmd.Flag("date", "Only entries from this day (YYYY-MM-DD)").StringVar(&c.date)
	cmd.Flag("level", "Severity level").Default(string(auditlog.LevelAll)).
		EnumVar(&c.level,
			string(auditlog.LevelInfo),
			string(auditlog.LevelWarning),
			string(auditlog.LevelError),
			string(auditlog.LevelAll))
	cmd.Flag("limit", "Maximum number of entries").Default("100").IntVar(&c.limit)
	cmd.Action(a.action(c.run))
}

func (c *commandLogsShow) run(ctx context.Context, svc *services) error {
	var day time.Time

	if c.date != "" {
		var err error

		day, err = time.Parse("2006-01-02", c.date)
		if err != nil {
			return errors.Wrap(err, "invalid --date")
		}
	}

	entries, degraded, err := svc.logs.GetLogs(ctx, day, auditlog.Level(c.level), c.limit)
	if err != nil {
		return errors.Wrap(err, "error fetching logs")
	}

	if degraded {
		color.Yellow("Audit store unavailable; showing sample entries.")
	}

	for _, e := range entries {
		fmt.Printf("%v %-8v %v\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Message)
	}

	return nil
}
