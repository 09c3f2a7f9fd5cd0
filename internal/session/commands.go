package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// consoleCommandFunc handles one '%'-prefixed command's remainder (the
// text after the command name and its separating space, or "" if
// none was given).
type consoleCommandFunc func(s *Session, ls *linkedServer, arg string)

// consoleCommands is the uoproxy console command registry (spec §4.H),
// grounded on the teacher's map-based admin/user command registry
// (internal/gameserver/admin/handler.go's Handler.adminCmds/userCmds),
// collapsed to uoproxy's single access tier since none of these
// commands are privilege-gated.
var consoleCommands = map[string]consoleCommandFunc{
	"reconnect": func(s *Session, ls *linkedServer, arg string) {
		_ = ls.conn.SendConsole("uoproxy: reconnecting")
		s.forceReconnect(ls)
	},
	"char": func(s *Session, ls *linkedServer, arg string) {
		if arg == "" {
			s.replyCharList(ls)
			return
		}
		s.changeCharacter(ls, arg)
	},
	"drop": func(s *Session, ls *linkedServer, arg string) {
		s.consoleDrop(ls)
	},
	"verbose": func(s *Session, ls *linkedServer, arg string) {
		s.setVerbose(ls, arg)
	},
}

// runConsoleCommand implements the '%'-prefixed command set a client
// can type into chat (spec §4.H), grounded on original_source's
// LinkedServer::OnCommand.
func (s *Session) runConsoleCommand(ls *linkedServer, command string) {
	if !s.inGame() {
		return
	}
	if command == "" {
		_ = ls.conn.SendConsole("uoproxy commands: % %reconnect %char %drop %verbose")
		return
	}

	name, arg, _ := strings.Cut(command, " ")
	fn, ok := consoleCommands[name]
	if !ok {
		_ = ls.conn.SendConsole("unknown uoproxy command, type '%' for help")
		return
	}
	fn(s, ls, arg)
}

// forceReconnect tears down the upstream connection on demand; the
// ordinary upstream-disconnect handling then redials it (spec §4.H).
func (s *Session) forceReconnect(ls *linkedServer) {
	if s.up != nil {
		s.up.Stop()
	}
}

func (s *Session) replyCharList(ls *linkedServer) {
	if len(s.charList.Characters) == 0 {
		_ = ls.conn.SendConsole("uoproxy: no characters in list")
		return
	}
	msg := "uoproxy:"
	for i, c := range s.charList.Characters {
		if c.Name == "" {
			continue
		}
		msg += fmt.Sprintf(" %d=%s", i, c.Name)
	}
	_ = ls.conn.SendConsole(msg)
}

// changeCharacter implements "%char N": original_source only accepts a
// single decimal digit, so this preserves that exact syntax limit.
func (s *Session) changeCharacter(ls *linkedServer, arg string) {
	if len(arg) != 1 || arg[0] < '0' || arg[0] > '9' {
		_ = ls.conn.SendConsole("uoproxy: invalid %char syntax")
		return
	}
	idx, _ := strconv.Atoi(arg)
	if idx >= len(s.charList.Characters) || s.charList.Characters[idx].Name == "" {
		_ = ls.conn.SendConsole("uoproxy: no character in slot")
		return
	}

	s.characterIndex = uint32(idx)
	_ = ls.conn.SendConsole("uoproxy: changing character")
	s.forceReconnect(ls)
}

// consoleDrop synthesizes a Drop at the player's current anchor
// position with serial=0/dest_serial=0 (original_source's "%drop":
// drops whatever the client thinks it is holding, harmlessly, to clear
// a desynced lift state).
func (s *Session) consoleDrop(ls *linkedServer) {
	if s.up == nil || s.reconnecting {
		_ = ls.conn.SendConsole("uoproxy: not connected")
		return
	}
	anchor := s.world.PlayerAnchor
	if s.upstreamProto < protover.V6 {
		_ = s.up.Conn.SendPacket(wire.Drop{X: anchor.X, Y: anchor.Y, Z: int8(anchor.Z)})
	} else {
		_ = s.up.Conn.SendPacket(wire.Drop6{X: anchor.X, Y: anchor.Y, Z: int8(anchor.Z)})
	}
}

// setVerbose handles "%verbose N": it parses N and logs it, and leaves
// the logger's level unchanged.
func (s *Session) setVerbose(ls *linkedServer, arg string) {
	if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		s.log.Info("console verbosity changed", "level", n)
		return
	}
	_ = ls.conn.SendConsole("uoproxy: invalid %verbose syntax")
}
