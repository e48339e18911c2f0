// Package persistence saves the operator-controlled limits configuration of
// a catalog so that it survives console restarts.
//
// The state is a small JSON file holding the selected limits set and, per
// limits item, whether monitoring is enabled and its persistence setting.
// Thresholds themselves come from the definitions and are never saved.
package persistence
