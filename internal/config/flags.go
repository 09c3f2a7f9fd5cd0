package config

import (
	"flag"
	"fmt"
	"io"
)

// ExitCode mirrors spec §6's CLI exit code contract: 0 success, 1 usage
// error, 2 config error.
type ExitCode int

const (
	ExitOK     ExitCode = 0
	ExitUsage  ExitCode = 1
	ExitConfig ExitCode = 2
)

// ParseArgs applies the spec §6 flag set (-h -V -v -q -p <port> -b
// <host:port>, one optional positional upstream address) on top of cfg,
// matching stdlib flag's closed, non-subcommand shape — the pack's only
// CLI framework dependency (cobra) serves a materially different,
// multi-subcommand tool and has no good home here.
func ParseArgs(cfg Config, args []string, out io.Writer) (result Config, showHelp, showVersion bool, err error) {
	fs := flag.NewFlagSet("uoproxy", flag.ContinueOnError)
	fs.SetOutput(out)

	help := fs.Bool("h", false, "show usage and exit")
	version := fs.Bool("V", false, "show version and exit")
	verbose := countFlag{}
	fs.Var(&verbose, "v", "increase verbosity (repeatable)")
	quiet := fs.Bool("q", false, "suppress all but error logging")
	port := fs.Int("p", 0, "local listen port")
	bind := fs.String("b", "", "local bind address (host:port)")

	if parseErr := fs.Parse(args); parseErr != nil {
		return cfg, false, false, parseErr
	}

	if *help {
		return cfg, true, false, nil
	}
	if *version {
		return cfg, false, true, nil
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *bind != "" {
		cfg.Bind = *bind
	}
	cfg.Verbosity += int(verbose)
	if *quiet {
		cfg.Verbosity = -1
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Server = fs.Arg(0)
	default:
		return cfg, false, false, fmt.Errorf("uoproxy: unexpected extra arguments: %v", fs.Args()[1:])
	}

	return cfg, false, false, nil
}

// countFlag implements flag.Value for a repeatable "-v -v -v" style flag.
type countFlag int

func (c *countFlag) String() string { return fmt.Sprintf("%d", int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }
