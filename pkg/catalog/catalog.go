package catalog

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// Catalog holds the command and telemetry definitions of all targets.
type Catalog struct {
	Commands  *Commands
	Telemetry *Telemetry

	logger       *slog.Logger
	events       log.Logger
	sessionID    string
	limitsChange packets.LimitsChangeFunc
}

// New creates an empty catalog.
func New(config Config) *Catalog {
	c := &Catalog{
		logger:       config.Logger,
		events:       config.EventLogger,
		sessionID:    config.SessionID,
		limitsChange: config.LimitsChange,
	}
	if c.events == nil {
		c.events = log.NoopLogger{}
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	c.Commands = &Commands{PacketSet: newPacketSet("Command", c)}
	c.Telemetry = &Telemetry{
		PacketSet: newPacketSet("Telemetry", c),
		limitsSet: packets.DefaultLimitsSet,
	}
	return c
}

// SessionID returns the ID attached to every event of this catalog.
func (c *Catalog) SessionID() string { return c.sessionID }

// Warnings collects the bit offset overlap warnings of every packet.
func (c *Catalog) Warnings() []string {
	var out []string
	for _, set := range []*PacketSet{c.Commands.PacketSet, c.Telemetry.PacketSet} {
		for _, target := range set.TargetNames() {
			pkts, _ := set.Packets(target)
			for _, p := range pkts {
				out = append(out, p.CheckBitOffsets()...)
			}
		}
	}
	return out
}

func (c *Catalog) newEvent(category log.Category, direction log.Direction, target, packet string) log.Event {
	ev := log.NewEvent(category, direction)
	ev.SessionID = c.sessionID
	ev.Target = target
	ev.Packet = packet
	return ev
}

func (c *Catalog) warn(target, packet, msg, context string) {
	c.debug("catalog warning", "target", target, "packet", packet, "warning", msg)
	ev := c.newEvent(log.CategoryError, log.DirectionIn, target, packet)
	ev.Error = &log.ErrorEvent{Message: msg, Context: context, Warning: true}
	c.events.Log(ev)
}

// logIdentified takes the received count as read under the set's lock.
func (c *Catalog) logIdentified(direction log.Direction, p *packets.Packet, buf []byte, count uint64) {
	ev := c.newEvent(log.CategoryIdentify, direction, p.TargetName(), p.PacketName())
	ev.PacketData = log.NewPacketEvent(buf)
	ev.PacketData.ReceivedCount = count
	c.events.Log(ev)
}

func (c *Catalog) logUnidentified(direction log.Direction, buf []byte) {
	c.debug("unidentified buffer", "size", len(buf))
	ev := c.newEvent(log.CategoryUnidentified, direction, "", "")
	ev.PacketData = log.NewPacketEvent(buf)
	c.events.Log(ev)
}

// debug logs a debug message if a logger is configured.
func (c *Catalog) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
