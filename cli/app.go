// Package cli implements the vestry command-line interface.
package cli

import (
	"context"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chapelhq/vestry/auditlog"
	"github.com/chapelhq/vestry/auditlog/sqlite"
	"github.com/chapelhq/vestry/backup"
	"github.com/chapelhq/vestry/logging"
)

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// App holds the global flags and wires commands to the managers they run
// against.
type App struct {
	databasePath string
	backupDir    string
	logDir       string
	configFiles  []string
	maxBackups   int
	actor        string
	logLevel     string
}

// NewApp returns an App with no flags bound yet.
func NewApp() *App {
	return &App{}
}

// Attach registers all flags and commands on the given kingpin application.
func (a *App) Attach(app *kingpin.Application) {
	app.Flag("db", "Path to the live SQLite database").Default("database.db").StringVar(&a.databasePath)
	app.Flag("backup-dir", "Directory holding backup archives").Default("backups").StringVar(&a.backupDir)
	app.Flag("log-dir", "Directory holding rotated log files and exports").Default("logs").StringVar(&a.logDir)
	app.Flag("config-file", "Configuration file bundled into archives (repeatable)").StringsVar(&a.configFiles)
	app.Flag("max-backups", "Maximum number of archives kept on disk").Default("10").IntVar(&a.maxBackups)
	app.Flag("actor", "User identifier recorded in the audit log").StringVar(&a.actor)
	app.Flag("log-level", "Log level").Default("info").EnumVar(&a.logLevel, "debug", "info", "warn", "error")

	backupCommands := app.Command("backup", "Commands to manage backup archives.")
	(&commandBackupCreate{}).setup(a, backupCommands)
	(&commandBackupList{}).setup(a, backupCommands)
	(&commandBackupRestore{}).setup(a, backupCommands)
	(&commandBackupDelete{}).setup(a, backupCommands)

	logsCommands := app.Command("logs", "Commands to query and maintain the audit log.")
	(&commandLogsShow{}).setup(a, logsCommands)
	(&commandLogsSecurity{}).setup(a, logsCommands)
	(&commandLogsExport{}).setup(a, logsCommands)
	(&commandLogsCleanup{}).setup(a, logsCommands)

	(&commandStats{}).setup(a, app)
}

// services bundles the opened store and managers for one command invocation.
type services struct {
	store   *sqlite.Store
	backups *backup.Manager
	logs    *auditlog.Manager
	actor   string
}

func (s *services) close() {
	s.store.Close() //nolint:errcheck
}

type actionFunc func(ctx context.Context, svc *services) error

// action adapts a command's run function to a kingpin action, opening the
// store and managers and attaching the logger to the context.
func (a *App) action(act actionFunc) func(*kingpin.ParseContext) error {
	return func(_ *kingpin.ParseContext) error {
		ctx := logging.WithLogger(context.Background(), a.loggerForModule())

		svc, err := a.openServices()
		if err != nil {
			return err
		}
		defer svc.close()

		return act(ctx, svc)
	}
}

func (a *App) openServices() (*services, error) {
	store, err := sqlite.Open(a.databasePath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	mgr, err := backup.NewManager(backup.Options{
		BackupDir:   a.backupDir,
		Database:    store,
		ConfigFiles: a.configFiles,
		LogDir:      a.logDir,
		MaxBackups:  a.maxBackups,
		Audit:       store,
	})
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "initialize backup manager")
	}

	return &services{
		store:   store,
		backups: mgr,
		logs:    auditlog.NewManager(store, a.logDir),
		actor:   a.actor,
	}, nil
}

func (a *App) loggerForModule() logging.LoggerForModuleFunc {
	lvl, err := zapcore.ParseLevel(a.logLevel)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return nil
	}

	return logging.Zap(l)
}
