// Package formats provides readers and writers for terrain elevation file formats.
package formats

// Note: BT (Binary Terrain, VTP project) is implemented in bt.go
