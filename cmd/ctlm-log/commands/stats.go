package commands

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Packets           map[string]*PacketStats
	Sessions          map[string]int
	Errors            int
	Warnings          int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PacketStats holds statistics for one "TARGET PACKET" pair.
type PacketStats struct {
	FirstSeen         time.Time
	LastSeen          time.Time
	Events            int
	Bytes             int
	LimitsTransitions int
}

func newStats() *Stats {
	return &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Packets:           make(map[string]*PacketStats),
		Sessions:          make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.SessionID != "" {
		s.Sessions[event.SessionID]++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Error != nil {
		if event.Error.Warning {
			s.Warnings++
		} else {
			s.Errors++
		}
	}

	if event.Target == "" || event.Packet == "" {
		return
	}
	key := event.Target + " " + event.Packet
	pkt, ok := s.Packets[key]
	if !ok {
		pkt = &PacketStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Packets[key] = pkt
	}
	pkt.Events++
	if event.Timestamp.After(pkt.LastSeen) {
		pkt.LastSeen = event.Timestamp
	}
	switch {
	case event.PacketData != nil:
		pkt.Bytes += event.PacketData.Size
	case event.Command != nil:
		pkt.Bytes += len(event.Command.Data)
	case event.Limits != nil:
		pkt.LimitsTransitions++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Catalog Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Sessions:     %d\n", len(stats.Sessions))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryIdentify, log.CategoryUnidentified, log.CategoryCommand, log.CategoryLimits, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}

	if len(stats.Packets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Packets: %d\n", len(stats.Packets))
		names := make([]string, 0, len(stats.Packets))
		for name := range stats.Packets {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			p := stats.Packets[name]
			fmt.Fprintf(w, "  %s: %d events, %d bytes", name, p.Events, p.Bytes)
			if p.LimitsTransitions > 0 {
				fmt.Fprintf(w, ", %d limits transitions", p.LimitsTransitions)
			}
			fmt.Fprintln(w)
		}
	}

	if stats.Errors > 0 || stats.Warnings > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d, Warnings: %d\n", stats.Errors, stats.Warnings)
	}
}
