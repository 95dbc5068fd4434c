// Package kernel holds the fixed table of frame filters and the index of
// the active one.
//
// The table is created once with ten built-in descriptors in a fixed order.
// Only the active index changes, through [Registry.Advance], which rotates
// it cyclically with a compare-and-swap so that concurrent readers never
// observe a torn or out-of-range value.
//
// Every filter is a WGSL compute program made of a shared prelude (bindings
// and pixel packing), the filter body, and a common entry point declared
// with @workgroup_size(8, 8, 1). The package also carries Go reference
// implementations of each filter, used by the software backend and by tests
// that check GPU output.
package kernel
