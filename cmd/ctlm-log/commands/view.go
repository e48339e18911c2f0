// Package commands implements the ctlm-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// timestampLayout renders event times with microsecond precision.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Direction *log.Direction
	Category  *log.Category
	Target    string
	Packet    string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		Direction: f.Direction,
		Category:  f.Category,
		Target:    f.Target,
		Packet:    f.Packet,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] DIRECTION CATEGORY TARGET PACKET
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [sess:%s] %-3s %s", ts, shortenID(event.SessionID), event.Direction, event.Category)
	if event.Target != "" {
		fmt.Fprintf(w, " %s", event.Target)
		if event.Packet != "" {
			fmt.Fprintf(w, " %s", event.Packet)
		}
	}
	fmt.Fprintln(w)

	switch {
	case event.PacketData != nil:
		formatPacketDetails(w, event.PacketData)
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.Limits != nil:
		formatLimitsDetails(w, event.Item, event.Limits)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of an ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatPacketDetails(w io.Writer, pkt *log.PacketEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", pkt.Size)
	if len(pkt.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(pkt.Data))
		if pkt.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
	if pkt.ReceivedCount > 0 {
		fmt.Fprintf(w, "  Received: %d\n", pkt.ReceivedCount)
	}
}

func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	fmt.Fprintf(w, "  %s\n", cmd.Output)
	if cmd.Hazardous {
		fmt.Fprintf(w, "  Hazardous: %s\n", cmd.HazardousDescription)
	}
	if len(cmd.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(cmd.Data))
	}
}

func formatLimitsDetails(w io.Writer, item string, lim *log.LimitsEvent) {
	oldState := lim.OldState
	if oldState == "" {
		oldState = "NONE"
	}
	newState := lim.NewState
	if newState == "" {
		newState = "NONE"
	}
	fmt.Fprintf(w, "  %s: %s -> %s", item, oldState, newState)
	if lim.Value != nil {
		fmt.Fprintf(w, " (%s)", packets.FormatValue(lim.Value))
	}
	if lim.LimitsSet != "" {
		fmt.Fprintf(w, " [%s]", lim.LimitsSet)
	}
	fmt.Fprintln(w)
}

func formatErrorDetails(w io.Writer, e *log.ErrorEvent) {
	label := "Error"
	if e.Warning {
		label = "Warning"
	}
	fmt.Fprintf(w, "  %s: %s\n", label, e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return log.ParseCategory(s)
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
