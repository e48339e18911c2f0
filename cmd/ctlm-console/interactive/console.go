// Package interactive provides the interactive command-line interface of
// ctlm-console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
	"github.com/ctlm-ground/ctlm-go/pkg/inspect"
	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/persistence"
	"github.com/ctlm-ground/ctlm-go/pkg/wire"
)

// verbs lists the console commands offered by completion.
var verbs = []string{
	"help", "load", "targets", "inspect", "params", "cmd", "tlm", "read",
	"write", "limits", "replay", "record", "stale", "reset", "quit",
}

// commandVerbs complete their arguments from the command definitions.
var commandVerbs = []string{"params", "cmd"}

// Config configures a Console.
type Config struct {
	// Definitions is the directory of target definition files.
	Definitions string

	// StatePath is the limits state file. Empty disables persistence.
	StatePath string

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// EventLogger receives catalog events. Nil disables event logging.
	EventLogger log.Logger

	// SessionID tags catalog events and captures.
	SessionID string
}

// Console handles interactive mode for ctlm-console.
type Console struct {
	config    Config
	cat       *catalog.Catalog
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	names     *inspect.Names
	store     *persistence.LimitsStateStore
	out       io.Writer

	// Confirm asks the operator to confirm a hazardous command.
	Confirm func(prompt string) bool

	recordFile io.Closer
	recorder   *wire.Writer
}

// New creates a console writing to out and loads the configured
// definitions.
func New(cfg Config, out io.Writer) (*Console, error) {
	c := &Console{
		config:    cfg,
		formatter: inspect.NewFormatter(),
		out:       out,
		Confirm:   func(string) bool { return false },
	}
	if cfg.StatePath != "" {
		c.store = persistence.NewLimitsStateStore(cfg.StatePath)
	}
	if err := c.load(cfg.Definitions); err != nil {
		return nil, err
	}
	return c, nil
}

// Catalog returns the loaded catalog.
func (c *Console) Catalog() *catalog.Catalog {
	return c.cat
}

// load replaces the catalog with the definitions in dir and restores the
// saved limits state.
func (c *Console) load(dir string) error {
	cat, warnings, err := defparse.LoadCatalog(dir, catalog.Config{
		Logger:       c.config.Logger,
		EventLogger:  c.config.EventLogger,
		SessionID:    c.config.SessionID,
		LimitsChange: c.limitsChanged,
	})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(c.out, "warning: %s\n", w)
	}

	c.cat = cat
	c.config.Definitions = dir
	c.inspector = inspect.NewInspector(cat)
	c.names = inspect.NewNames(cat, verbs, commandVerbs)

	if c.store != nil {
		state, err := c.store.Load()
		if err != nil {
			return err
		}
		warnings, err := persistence.Restore(cat, state)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(c.out, "warning: %s\n", w)
		}
	}
	c.debug("definitions loaded", "dir", dir, "targets", len(cat.Telemetry.TargetNames()))
	return nil
}

// limitsChanged runs under the catalog's telemetry lock.
func (c *Console) limitsChanged(p *packets.Packet, item *packets.Item, old packets.LimitsState, value any, logChange bool) {
	if !logChange {
		return
	}
	from := old.String()
	if from == "" {
		from = "NONE"
	}
	fmt.Fprintf(c.out, "LIMITS %s %s %s: %s -> %s (%s)\n",
		p.TargetName(), p.PacketName(), item.Name, from, item.Limits.State, packets.FormatValue(value))
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ctlm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    c,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.Confirm = func(prompt string) bool {
		rl.SetPrompt(prompt + " [y/N] ")
		defer rl.SetPrompt("ctlm> ")
		line, err := rl.Readline()
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			c.stopRecording()
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			c.stopRecording()
			cancel()
			return nil
		}

		if c.Exec(ctx, line) {
			c.stopRecording()
			cancel()
			return nil
		}
	}
}

// Do implements readline.AutoCompleter against the current catalog.
func (c *Console) Do(line []rune, pos int) ([][]rune, int) {
	return c.names.Do(line, pos)
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" || strings.HasPrefix(input, "#") {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "load":
		c.cmdLoad(args)
	case "targets", "t":
		fmt.Fprint(c.out, c.inspector.FormatCatalog(c.inspector.InspectCatalog(), c.formatter))
	case "inspect", "i":
		c.cmdInspect(args)
	case "params", "p":
		c.cmdParams(args)
	case "cmd", "c":
		c.cmdCommand(args)
	case "tlm":
		c.cmdTelemetry(args)
	case "read", "r":
		c.cmdRead(args)
	case "write", "w":
		c.cmdWrite(args)
	case "limits", "l":
		c.cmdLimits(args)
	case "replay":
		c.cmdReplay(ctx, args)
	case "record":
		c.cmdRecord(args)
	case "stale":
		c.cmdStale(args)
	case "reset":
		c.cat.Telemetry.ResetAll()
		fmt.Fprintln(c.out, "OK")
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Console Commands:
  Definitions:
    load [dir]                      - Reload target definitions
    targets                         - List targets and packets
    params <target> <packet>        - Show command parameters

  Commands:
    cmd <target> <packet> [ITEM=VALUE ...] [-raw] [-norange]
                                    - Build a command

  Telemetry:
    tlm <hex>                       - Identify a buffer and update telemetry
    inspect <target> [packet]       - Show a target or packet
    read <path> [-raw]              - Read a telemetry item
    write <path> <value> [-raw]     - Overwrite a telemetry item
    stale <seconds>                 - Mark packets older than this stale
    reset                           - Clear received counts

  Limits:
    limits                          - List out of limits items
    limits sets                     - List limits sets
    limits set <name>               - Select the limits set
    limits enable|disable <path>    - Toggle limits checking
    limits persistence <path> <n>   - Samples before a state change
    limits save|load                - Save or restore the limits state

  Captures:
    replay <file.ccap>              - Feed a capture through the catalog
    record <file.ccap> [comment]    - Record commands and telemetry
    record stop                     - Stop recording

  General:
    help                            - Show this help
    quit                            - Exit

  Path Format:
    TARGET PACKET ITEM, e.g. INST HEALTH TEMP1 or inst/health/temp1`)
}

// debug logs a debug message if a logger is configured.
func (c *Console) debug(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
