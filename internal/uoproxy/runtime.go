// Package uoproxy wires up the process-wide dependencies every other
// package needs a handle to: the structured logger, the parsed
// configuration, the actor system, and the listener's session registry
// (spec §2). cmd/uoproxy's main is the only caller; everything else
// takes these as constructor arguments instead of reaching for
// globals.
package uoproxy

import (
	"context"
	"log/slog"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/MaxKellermann/uoproxy-sub000/internal/config"
	"github.com/MaxKellermann/uoproxy-sub000/internal/listener"
)

// Runtime bundles the dependencies a running uoproxy process shares
// across its accept loop and every session actor it spawns. Server
// doubles as the session registry (spec §3 "session sharing"): it owns
// the credentials-keyed map from an attached client back to its
// session PID.
type Runtime struct {
	Logger *slog.Logger
	Config config.Config
	System *actor.ActorSystem
	Server *listener.Server
}

// New constructs a Runtime ready to Run. cfg is assumed already loaded
// and layered with CLI flags (config.Load + config.ParseArgs).
func New(cfg config.Config, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	system := actor.NewActorSystem()
	return &Runtime{
		Logger: logger,
		Config: cfg,
		System: system,
		Server: listener.New(cfg, system, logger),
	}
}

// Run accepts connections until ctx is cancelled, same contract as
// listener.Server.Run.
func (r *Runtime) Run(ctx context.Context) error {
	return r.Server.Run(ctx)
}
