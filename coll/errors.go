package coll

import "github.com/pkg/errors"

var (
	// ErrIndexOutOfRange is returned by Nth for an index outside [0, Size()).
	ErrIndexOutOfRange = errors.New("coll: index out of range")
	// ErrNotMap is returned when opening a block that is not a saved map.
	ErrNotMap = errors.New("coll: block is not a map")
	// ErrCorrupt is returned when a saved map does not decode.
	ErrCorrupt = errors.New("coll: corrupt map block")
)
