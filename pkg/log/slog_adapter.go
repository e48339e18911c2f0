package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes catalog events to an slog.Logger.
// Useful for development when you want to see catalog events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Errors log at Warn level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
		slog.String("target", event.Target),
	}

	if event.Packet != "" {
		attrs = append(attrs, slog.String("packet", event.Packet))
	}
	if event.Item != "" {
		attrs = append(attrs, slog.String("item", event.Item))
	}

	level := slog.LevelDebug
	switch {
	case event.PacketData != nil:
		attrs = append(attrs,
			slog.Int("size", event.PacketData.Size),
			slog.Bool("truncated", event.PacketData.Truncated),
		)
		if event.PacketData.ReceivedCount > 0 {
			attrs = append(attrs, slog.Uint64("received_count", event.PacketData.ReceivedCount))
		}
	case event.Command != nil:
		attrs = append(attrs, slog.String("command", event.Command.Output))
		if event.Command.Hazardous {
			attrs = append(attrs,
				slog.Bool("hazardous", true),
				slog.String("hazardous_description", event.Command.HazardousDescription),
			)
		}
	case event.Limits != nil:
		attrs = append(attrs,
			slog.String("old_state", event.Limits.OldState),
			slog.String("new_state", event.Limits.NewState),
			slog.Any("value", event.Limits.Value),
		)
		if event.Limits.LimitsSet != "" {
			attrs = append(attrs, slog.String("limits_set", event.Limits.LimitsSet))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "catalog", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
