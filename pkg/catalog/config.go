package catalog

import (
	"errors"
	"log/slog"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// Catalog errors.
var (
	ErrUnknownTarget    = errors.New("unknown target")
	ErrUnknownPacket    = errors.New("unknown packet")
	ErrMissingParameter = errors.New("missing parameter")
	ErrUnknownLimitsSet = errors.New("unknown limits set")
)

// Config configures a Catalog.
type Config struct {
	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// EventLogger receives identify, command, limits and warning events.
	// Nil disables event logging.
	EventLogger log.Logger

	// SessionID tags every event. A random UUID is used when empty.
	SessionID string

	// LimitsChange is called after a telemetry item changes limits state.
	LimitsChange packets.LimitsChangeFunc
}
