// Package catalog holds the command and telemetry packet definitions of a
// set of targets and identifies raw buffers against them.
//
// A Catalog is built once from definitions (see pkg/defparse) and then used
// read-mostly. Packets returned by the identify and packet lookups are the
// catalog's canonical instances; clone them before mutating. BuildCmd and
// the Commands identify path return clones.
//
// Identification compares the raw values of each packet's id items with the
// values recorded at definition time. Within a target, packets sharing one
// id layout are found with a single map lookup keyed by the id value tuple.
// When the layouts differ, or two packets share an id tuple, the target
// switches to unique id mode and packets are tried one by one in declaration
// order, additionally checking that the buffer length fits the packet. A
// packet without id items is the target's catch-all and matches last.
//
// Subpackets form a second, disjoint definition set per target. A single
// identify call only ever matches within one of the two sets.
package catalog
