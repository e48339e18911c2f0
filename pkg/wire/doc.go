// Package wire defines the CBOR capture format for raw packet buffers.
//
// A capture is a stream of CBOR items: one Header followed by any number of
// Records. Each record holds one framed buffer exactly as it was received
// or sent, so a capture can be replayed through a catalog to rebuild the
// current value table.
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. The key mappings are
// defined as constants in this package.
//
// # Target and Packet Names
//
// Records may carry the target and packet the buffer was identified as
// when it was captured. Both are optional: an empty name means the buffer
// is identified again on replay.
package wire
