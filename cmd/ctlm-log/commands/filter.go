package commands

import (
	"fmt"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
)

// FilterOptions holds the event selection flags shared by filter and
// export, and the output file.
type FilterOptions struct {
	Output    string
	SessionID string
	Target    string
	Packet    string
	Item      string
	TimeStart string
	TimeEnd   string
	Direction string
	Category  string
}

func (o FilterOptions) logFilter() (log.Filter, error) {
	filter := log.Filter{
		SessionID: o.SessionID,
		Target:    o.Target,
		Packet:    o.Packet,
		Item:      o.Item,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunFilter filters the log file and writes matching events to a new file.
// It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.logFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	if err := reader.Each(func(event log.Event) error {
		logger.Log(event)
		return logger.Err()
	}); err != nil {
		return logger.Count(), fmt.Errorf("filtering events: %w", err)
	}
	return logger.Count(), nil
}
