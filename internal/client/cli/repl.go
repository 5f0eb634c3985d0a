package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Profiles(ctx context.Context) error
	AddProfile(ctx context.Context) error
	DeleteProfile(ctx context.Context, args []string) error
	Trigger(ctx context.Context, args []string) error

	Status(ctx context.Context) error
	Start(ctx context.Context, args []string) error
	Stop(ctx context.Context, args []string) error
	Break(ctx context.Context, args []string) error
	Extend(ctx context.Context, args []string) error
	BackgroundStart(ctx context.Context, args []string) error
	BackgroundStop(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error

	Emergency(ctx context.Context) error
	Budget(ctx context.Context) error
	Period(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: profiles, addprofile, delprofile, trigger, status, start, stop, " +
		"break, extend, bgstart, bgstop, refresh, emergency, budget, period, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the GophFocus CLI.
//
// It reads a line from reader, parses the first token as the command and
// passes the remaining tokens to the handler. Interactive handlers read
// their answers from the same reader. The loop exits on EOF or when the user
// types "exit" or "quit".
//
// Prompt & Commands
//
//	Not linked to a family (grpc backend only):
//	  - register                        create a family account
//	  - login                           link this device to a family
//
//	Linked:
//	  - profiles                        list profiles with their state
//	  - addprofile                      create a profile interactively
//	  - delprofile <profile>            delete an idle profile
//	  - trigger <profile> start|stop <option> on|off
//	  - status                          show the active session
//	  - start [-f] <profile>            start (-f skips the handshake)
//	  - stop <profile>                  run the stop handshake
//	  - break <profile>                 start or end a break
//	  - extend <profile>                one more minute
//	  - bgstart <profile> [duration]    background intent start
//	  - bgstop <profile>                background intent stop
//	  - refresh [profile]               reconcile with the remote store
//	  - emergency                       end the active session now
//	  - budget                          show the emergency budget
//	  - period <weeks>                  set the budget reset period
//	  - logout
//
// Errors returned by handlers are printed and otherwise ignored so the loop
// keeps running.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gf %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn(describeError(err))
		}
	}
}

var errUnknownCommand = errors.New("unknown command")

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		printlnFn("Please login first (type 'help' for commands)")
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "profiles", "l":
		return a.Profiles(ctx)
	case "addprofile":
		return a.AddProfile(ctx)
	case "delprofile":
		return a.DeleteProfile(ctx, args)
	case "trigger":
		return a.Trigger(ctx, args)
	case "status":
		return a.Status(ctx)
	case "start":
		return a.Start(ctx, args)
	case "stop":
		return a.Stop(ctx, args)
	case "break":
		return a.Break(ctx, args)
	case "extend":
		return a.Extend(ctx, args)
	case "bgstart":
		return a.BackgroundStart(ctx, args)
	case "bgstop":
		return a.BackgroundStop(ctx, args)
	case "refresh":
		return a.Refresh(ctx, args)
	case "emergency":
		return a.Emergency(ctx)
	case "budget":
		return a.Budget(ctx)
	case "period":
		return a.Period(ctx, args)
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
}
