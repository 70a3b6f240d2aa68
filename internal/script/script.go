// Package script drives the joypad from a Lua program for unattended runs.
//
// A script defines on_frame(n), called after every emulated frame, and may use:
//
//	press(key)    hold a key: "a" "b" "select" "start" "up" "down" "left" "right"
//	release(key)  let it go
//	peek(addr)    read a byte the way the CPU would
//	quit()        stop the run after this frame
package script

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
)

// ErrQuit is returned by Frame once the script called quit().
var ErrQuit = errors.New("script requested quit")

// Host is the machine a script pokes at.
type Host interface {
	SetKeys(k input.Keys)
	Peek(addr uint16) byte
}

var keyNames = map[string]input.Keys{
	"right":  input.Right,
	"left":   input.Left,
	"up":     input.Up,
	"down":   input.Down,
	"a":      input.A,
	"b":      input.B,
	"select": input.Select,
	"start":  input.Start,
}

type Script struct {
	L       *lua.LState
	host    Host
	keys    input.Keys
	quit    bool
	onFrame *lua.LFunction
}

// Load runs the file at path once and keeps its on_frame hook.
func Load(path string, host Host) (*Script, error) {
	s := newScript(host)
	if err := s.L.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return s.bind()
}

// LoadString is Load for inline source.
func LoadString(src string, host Host) (*Script, error) {
	s := newScript(host)
	if err := s.L.DoString(src); err != nil {
		s.Close()
		return nil, fmt.Errorf("script: %w", err)
	}
	return s.bind()
}

func newScript(host Host) *Script {
	s := &Script{L: lua.NewState(), host: host}
	s.L.SetGlobal("press", s.L.NewFunction(s.press))
	s.L.SetGlobal("release", s.L.NewFunction(s.release))
	s.L.SetGlobal("peek", s.L.NewFunction(s.peek))
	s.L.SetGlobal("quit", s.L.NewFunction(s.requestQuit))
	return s
}

func (s *Script) bind() (*Script, error) {
	fn, ok := s.L.GetGlobal("on_frame").(*lua.LFunction)
	if !ok {
		s.Close()
		return nil, errors.New("script: on_frame is not defined")
	}
	s.onFrame = fn
	return s, nil
}

// Frame calls on_frame(n) and forwards the resulting key state.
func (s *Script) Frame(n uint64) error {
	err := s.L.CallByParam(lua.P{Fn: s.onFrame, NRet: 0, Protect: true}, lua.LNumber(n))
	if err != nil {
		return fmt.Errorf("on_frame(%d): %w", n, err)
	}
	s.host.SetKeys(s.keys)
	if s.quit {
		return ErrQuit
	}
	return nil
}

// Keys returns the keys the script currently holds.
func (s *Script) Keys() input.Keys { return s.keys }

func (s *Script) Close() { s.L.Close() }

func (s *Script) key(L *lua.LState) input.Keys {
	name := L.CheckString(1)
	k, ok := keyNames[strings.ToLower(name)]
	if !ok {
		L.ArgError(1, "unknown key "+name)
	}
	return k
}

func (s *Script) press(L *lua.LState) int {
	s.keys |= s.key(L)
	return 0
}

func (s *Script) release(L *lua.LState) int {
	s.keys &^= s.key(L)
	return 0
}

func (s *Script) peek(L *lua.LState) int {
	addr := L.CheckInt(1)
	if addr < 0 || addr > 0xFFFF {
		L.ArgError(1, "address out of range")
	}
	L.Push(lua.LNumber(s.host.Peek(uint16(addr))))
	return 1
}

func (s *Script) requestQuit(L *lua.LState) int {
	s.quit = true
	return 0
}
