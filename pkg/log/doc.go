// Package log provides the structured event log of a packet catalog.
//
// This package defines the Logger interface and Event types for capturing
// what the catalog does with packets: identifications, unidentified buffers,
// commands built, limits transitions and errors. It is separate from
// operational logging (slog); the event log is a complete machine-readable
// trace for replay and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For operations: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/ctlm/catalog.clog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Every event names its target and packet and carries one payload:
//   - Packet: the buffer that was identified or not (PacketEvent)
//   - Command: a command that was built (CommandEvent)
//   - Limits: an item limits state change (LimitsEvent)
//   - Error: a failure or definition warning (ErrorEvent)
//
// # File Format
//
// Log files are CBOR sequences with the .clog extension. The ctlm-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
