/*
Command-line tool for managing versioned database backup archives and the
security audit log.

Usage:

	$ vestry [<flags>] <subcommand> [<args> ...]

Use 'vestry help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/chapelhq/vestry/cli"
)

func main() {
	app := kingpin.New("vestry", "Backup and audit log manager.")

	cli.NewApp().Attach(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
