// Command uoproxy is a transparent interception proxy for Ultima Online
// clients (spec §1 overview): it sits between one or more real clients
// and the account's real login/game servers, re-homing reconnects onto
// a single upstream session and applying the console-command filters
// described in spec §4.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MaxKellermann/uoproxy-sub000/internal/config"
	"github.com/MaxKellermann/uoproxy-sub000/internal/uoproxy"
)

// version is the CLI's self-reported build identity (spec §6 "-V").
const version = "uoproxy 1.0"

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr, config.Load)
	os.Exit(int(code))
}

// run is split out from main so tests can drive the CLI without calling
// os.Exit (grounded on the teacher's context-returning run(ctx) split in
// cmd/gameserver/main.go). loadConfig is injected so tests can bypass
// the real ~/.uoproxyrc / /etc/uoproxy.conf search path.
func run(args []string, stdout, stderr io.Writer, loadConfig func() (config.Config, error)) config.ExitCode {
	cfg, code, handled := parseCLI(args, stdout, stderr, loadConfig)
	if handled {
		return code
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: verbosityToLevel(cfg.Verbosity),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		cancel()
	}()

	rt := uoproxy.New(cfg, logger)

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("fatal", "error", err)
		return config.ExitConfig
	}
	return config.ExitOK
}

// parseCLI loads the config file then layers flags on top of it,
// reporting whether the caller should stop immediately (help/version/
// usage or config errors) along with the exit code to use.
func parseCLI(args []string, stdout, stderr io.Writer, loadConfig func() (config.Config, error)) (cfg config.Config, code config.ExitCode, handled bool) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return cfg, config.ExitConfig, true
	}

	cfg, showHelp, showVersion, err := config.ParseArgs(cfg, args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return cfg, config.ExitOK, true
		}
		return cfg, config.ExitUsage, true
	}
	if showHelp {
		printUsage(stdout)
		return cfg, config.ExitOK, true
	}
	if showVersion {
		fmt.Fprintln(stdout, version)
		return cfg, config.ExitOK, true
	}

	return cfg, config.ExitOK, false
}

// verbosityToLevel maps the -v/-q net effect (spec §6) onto slog's
// level scale: more -v lowers the threshold, -q raises it to errors
// only.
func verbosityToLevel(verbosity int) slog.Level {
	switch {
	case verbosity < 0:
		return slog.LevelError
	case verbosity == 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `usage: uoproxy [-h] [-V] [-v] [-q] [-p port] [-b host:port] [server]

  -h             show this help and exit
  -V             show version and exit
  -v             increase verbosity (repeatable)
  -q             suppress all but error logging
  -p port        local listen port
  -b host:port   local bind address
  server         upstream login server host:port (optional)

Configuration is also read from ~/.uoproxyrc, then /etc/uoproxy.conf.`)
}
