// Command ctlm-log is a tool for viewing and analyzing catalog event logs
// and packet captures.
//
// Event logs are written by ctlm-console with the -event-log flag. Captures
// are written by the console's record command.
//
// Usage:
//
//	ctlm-log <command> [flags] <file>
//
// Commands:
//
//	view     View an event log in human-readable format
//	export   Export an event log to JSON or CSV format
//	filter   Filter an event log and write to new file
//	stats    Show statistics about an event log
//	decode   Identify and print the packets of a capture
//	trend    Summarize one telemetry item over a capture
//
// Examples:
//
//	# View only limits events
//	ctlm-log view --category limits console.clog
//
//	# Export to JSONL
//	ctlm-log export --format jsonl console.clog
//
//	# Keep one target's events
//	ctlm-log filter --target INST -o inst.clog console.clog
//
//	# Decode a capture with item values
//	ctlm-log decode --defs ./targets --items pass1.ccap
//
//	# Summarize a temperature over a capture
//	ctlm-log trend --defs ./targets --item "INST HEALTH TEMP1" pass1.ccap
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ctlm-ground/ctlm-go/cmd/ctlm-log/commands"
)

const usage = `ctlm-log - Catalog Event Log and Capture Analyzer

Usage:
  ctlm-log <command> [flags] <file>

Commands:
  view     View an event log in human-readable format
  export   Export an event log to JSON or CSV format
  filter   Filter an event log and write to new file
  stats    Show statistics about an event log
  decode   Identify and print the packets of a capture
  trend    Summarize one telemetry item over a capture

Use "ctlm-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "decode":
		runDecode(args)
	case "trend":
		runTrend(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseFileArgs parses args and returns the single positional file path.
func parseFileArgs(fs *flag.FlagSet, args []string, what string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: %s path required\n", what)
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func usageFor(fs *flag.FlagSet, text string) func() {
	return func() {
		fmt.Fprint(os.Stderr, text)
		fs.PrintDefaults()
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log view - View an event log in human-readable format

Usage:
  ctlm-log view [flags] <file.clog>

Flags:
`)

	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (identify, unidentified, command, limits, error)")
	target := fs.String("target", "", "Filter by target name")
	packet := fs.String("packet", "", "Filter by packet name")

	path := parseFileArgs(fs, args, "log file")

	filter := commands.ViewFilter{Target: *target, Packet: *packet}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log export - Export an event log to JSON or CSV format

Usage:
  ctlm-log export [flags] <file.clog>

Flags:
`)

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	opts := filterFlags(fs, "Output file (default: stdout)")

	path := parseFileArgs(fs, args, "log file")

	if err := commands.RunExport(path, *format, *opts); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log filter - Filter an event log and write to new file

Usage:
  ctlm-log filter [flags] <file.clog>

Flags:
`)

	opts := filterFlags(fs, "Output file (required)")

	path := parseFileArgs(fs, args, "log file")
	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

// filterFlags registers the event selection flags and -o on fs.
func filterFlags(fs *flag.FlagSet, outputUsage string) *commands.FilterOptions {
	o := &commands.FilterOptions{}
	fs.StringVar(&o.Output, "o", "", outputUsage)
	fs.StringVar(&o.SessionID, "session-id", "", "Filter by session ID")
	fs.StringVar(&o.Target, "target", "", "Filter by target name")
	fs.StringVar(&o.Packet, "packet", "", "Filter by packet name")
	fs.StringVar(&o.Item, "item", "", "Filter by item name")
	fs.StringVar(&o.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category (identify, unidentified, command, limits, error)")
	return o
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log stats - Show statistics about an event log

Usage:
  ctlm-log stats <file.clog>

`)

	path := parseFileArgs(fs, args, "log file")

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log decode - Identify and print the packets of a capture

Usage:
  ctlm-log decode -defs <dir> [flags] <file.ccap>

Flags:
`)

	defs := fs.String("defs", "", "Directory of target definition files (required)")
	items := fs.Bool("items", false, "Print the item values of each telemetry packet")
	raw := fs.Bool("raw", false, "Print raw instead of converted item values")

	path := parseFileArgs(fs, args, "capture file")
	if *defs == "" {
		fmt.Fprintln(os.Stderr, "Error: definitions directory (-defs) required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := commands.DecodeOptions{Definitions: *defs, Items: *items, Raw: *raw}
	if err := commands.RunDecode(ctx, path, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runTrend(args []string) {
	fs := flag.NewFlagSet("trend", flag.ExitOnError)
	fs.Usage = usageFor(fs, `ctlm-log trend - Summarize one telemetry item over a capture

Usage:
  ctlm-log trend -defs <dir> -item "TARGET PACKET ITEM" <file.ccap>

Flags:
`)

	defs := fs.String("defs", "", "Directory of target definition files (required)")
	item := fs.String("item", "", "Telemetry item path (required)")

	path := parseFileArgs(fs, args, "capture file")
	if *defs == "" || *item == "" {
		fmt.Fprintln(os.Stderr, "Error: -defs and -item are required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.RunTrend(ctx, path, *defs, *item, os.Stdout); err != nil {
		fail(err)
	}
}
