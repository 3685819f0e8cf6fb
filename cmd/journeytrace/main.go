// Command journeytrace records journey events from the command line and
// sends them to a collection endpoint.
//
// Usage:
//
//	journeytrace [flags] commit|heartbeat|deanonymize
//
// The API key and endpoint come from JOURNEYTRACE_API_KEY and
// JOURNEYTRACE_API_URL unless --key and --url are given.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vincentbai/journeytrace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		apiKey, apiURL, sessionID string
		pages, funnels, outcomes  []string
		person                    map[string]string
		allowSelfSigned, verbose  bool
	)

	flagSet := pflag.NewFlagSet("journeytrace", pflag.ContinueOnError)
	flagSet.StringVar(&apiKey, "key", "", "API key (default: $JOURNEYTRACE_API_KEY)")
	flagSet.StringVar(&apiURL, "url", "", "collection endpoint (default: $JOURNEYTRACE_API_URL)")
	flagSet.StringVar(&sessionID, "id", "", "session id (default: a new UUID)")
	flagSet.StringArrayVar(&pages, "page", nil, "record a page view (repeatable)")
	flagSet.StringArrayVar(&funnels, "funnel", nil, "record a funnel stage as stage:action (repeatable)")
	flagSet.StringArrayVar(&outcomes, "outcome", nil, "record an outcome as outcome:action (repeatable)")
	flagSet.StringToStringVar(&person, "person", nil, "person fields for deanonymize, e.g. name=Jo,email=jo@example.com")
	flagSet.BoolVar(&allowSelfSigned, "insecure", false, "accept self-signed certificates")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("expected one command: commit, heartbeat or deanonymize")
	}

	cfg, err := journeytrace.LoadConfig()
	if err != nil {
		return err
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	cfg.AllowSelfSigned = cfg.AllowSelfSigned || allowSelfSigned
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := journeytrace.New(cfg)
	if sessionID != "" {
		client.SetID(sessionID)
	}

	for _, page := range pages {
		if err := client.PageView(page); err != nil {
			return err
		}
	}
	for _, f := range funnels {
		stage, action, ok := strings.Cut(f, ":")
		if !ok {
			return fmt.Errorf("invalid --funnel %q, want stage:action", f)
		}
		if err := client.Funnel(stage, action); err != nil {
			return err
		}
	}
	for _, o := range outcomes {
		outcome, action, ok := strings.Cut(o, ":")
		if !ok {
			return fmt.Errorf("invalid --outcome %q, want outcome:action", o)
		}
		if err := client.Outcome(outcome, action); err != nil {
			return err
		}
	}

	ctx := context.Background()
	var resp journeytrace.Response
	switch command := flagSet.Arg(0); command {
	case "commit":
		resp, err = client.Commit(ctx)
	case "heartbeat":
		resp, err = client.Heartbeat(ctx)
	case "deanonymize":
		p := journeytrace.Person{}
		for key, value := range person {
			p[key] = value
		}
		resp, err = client.Deanonymize(ctx, p)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", flagSet.Arg(0), err)
	}

	fmt.Printf("session %s\n%s\n", client.ID(), resp)
	return nil
}
