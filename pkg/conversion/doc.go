// Package conversion provides read and write conversions for packet items
// and defines the reserved DERIVED items of telemetry packets.
//
// Every type here implements packets.Conversion. Conversions are stateless
// and may be shared between packets and clones.
package conversion
