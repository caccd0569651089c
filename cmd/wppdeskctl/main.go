package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/session"
	grpcstatus "google.golang.org/grpc/status"
)

type cli struct {
	c       *rpc.Client
	jsonOut bool
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, cl *cli, args []string) error
	// stream commands run until interrupted instead of under the request timeout.
	stream bool
}

var errUsage = errors.New("usage")

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		color.Red("unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		color.Red("error: %v\n", err)
		os.Exit(1)
	}

	c, err := rpc.Dial(session.SocketPath(sessionName))
	if err != nil {
		color.Red("error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if !cmd.stream {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()
	}

	err = cmd.run(ctx, &cli{c: c, jsonOut: *jsonFlag}, args[1:])
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "usage: wppdeskctl %s %s\n", args[0], cmd.usage)
		os.Exit(2)
	default:
		if st, ok := grpcstatus.FromError(err); ok {
			color.Red("error: %s (%s)\n", st.Message(), st.Code())
		} else {
			color.Red("error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wppdeskctl [--session <name>] [--json] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(os.Stderr, "  %-40s %s\n", name+" "+cmd.usage, cmd.help)
	}
}

func (cl *cli) emitJSON(v any) bool {
	if !cl.jsonOut {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
	return true
}
