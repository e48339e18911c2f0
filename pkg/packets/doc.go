// Package packets implements the command and telemetry data model: item
// definitions, structures that own a byte buffer, and packets that add
// identification, states, limits and conversions on top.
//
// # Items and Layout
//
// An Item names a typed span of a buffer. A Structure keeps its items both by
// name and in layout order (bit offset, then bit size, then definition order)
// and derives its defined length from them:
//
//	s := packets.NewStructure(accessor.BigEndian)
//	s.AppendItem("VERSION", 3, accessor.DataTypeUint)
//	s.AppendItem("TYPE", 1, accessor.DataTypeUint)
//	s.AppendItem("APID", 12, accessor.DataTypeUint)
//
// Deleting an item does not compact the layout; the vacated span stays part
// of the defined length.
//
// # Packets
//
// A Packet is a Structure belonging to a target. It adds:
//   - id items whose raw values identify the packet among its siblings
//   - states mapping raw values to labels (with hazardous and color metadata)
//   - read and write conversions between raw and engineering values
//   - limits sets checked against converted values
//
// Values are read as RAW, CONVERTED, FORMATTED or WITH_UNITS.
//
// Packets perform no locking. Catalog packets are shared definitions and must
// be cloned before they are mutated.
package packets
