package assets

import "github.com/twmb/murmur3"

// HandleID is a stable 64-bit identifier derived from an asset's kind and name.
// The same name always yields the same id, across runs and processes.
type HandleID uint64

// NewHandleID hashes kind and name into a HandleID.
//
// Parameters:
//   - kind: the asset kind, e.g. "mesh"
//   - name: the asset name
//
// Returns:
//   - HandleID: the murmur3 64-bit digest of kind and name
func NewHandleID(kind, name string) HandleID {
	h := murmur3.New64()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return HandleID(h.Sum64())
}
