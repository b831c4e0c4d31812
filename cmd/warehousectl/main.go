// Command warehousectl runs operational tasks against the warehouse store:
// migrations, seeding, health checks, log cleanup, security self-checks and
// admin account creation.
package main

import (
	"fmt"
	"io"
	"os"

	"warehouse/internal/config"
	"warehouse/internal/logger"

	"go.uber.org/zap"
)

const usage = `Usage: warehousectl <command> [flags]

Commands:
  migrate [up|status]    apply or list database migrations
  seed                   fill the store with fake data
  health                 check host, database and stock levels (--interval to repeat)
  cleanup-logs           remove or compress old log files
  selfcheck              probe a running API for security behavior
  create-admin           create an admin account

Run 'warehousectl <command> --help' for command flags.
`

type command func(app *app, args []string) error

var commands = map[string]command{
	"migrate":      runMigrate,
	"seed":         runSeed,
	"health":       runHealth,
	"cleanup-logs": runCleanupLogs,
	"selfcheck":    runSelfcheck,
	"create-admin": runCreateAdmin,
}

// app carries what every command shares
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// exitError carries a non-zero exit code without an error message of its own
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func run(args []string, cfg *config.Config, log *zap.Logger, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	a := &app{cfg: cfg, logger: log, stdout: stdout, stderr: stderr}
	if err := cmd(a, args[1:]); err != nil {
		if code, ok := err.(exitError); ok {
			return int(code)
		}
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		if isFlagError(err) {
			return 2
		}
		return 1
	}
	return 0
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "falling back to default logger: %v\n", err)
		log = logger.NewWithDefaults()
	}
	defer log.Sync()

	os.Exit(run(os.Args[1:], cfg, log, os.Stdout, os.Stderr))
}
