package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
)

var csvHeader = []string{"timestamp", "session_id", "direction", "category", "target", "packet", "item", "size", "detail"}

// RunExport writes the events of path selected by opts as format to
// opts.Output, or to stdout when it is empty.
func RunExport(path, format string, opts FilterOptions) error {
	filter, err := opts.logFilter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export(reader, format, w)
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return reader.Each(func(event log.Event) error {
			return enc.Encode(event)
		})
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		if err := reader.Each(func(event log.Event) error {
			return cw.Write(csvRow(event))
		}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func csvRow(event log.Event) []string {
	var size, detail string
	switch {
	case event.PacketData != nil:
		size = strconv.Itoa(event.PacketData.Size)
	case event.Command != nil:
		size = strconv.Itoa(len(event.Command.Data))
		detail = event.Command.Output
	case event.Limits != nil:
		detail = event.Limits.OldState + "->" + event.Limits.NewState
	case event.Error != nil:
		detail = event.Error.Message
	}
	return []string{
		event.Timestamp.UTC().Format(timestampLayout),
		event.SessionID,
		event.Direction.String(),
		event.Category.String(),
		event.Target,
		event.Packet,
		event.Item,
		size,
		detail,
	}
}
