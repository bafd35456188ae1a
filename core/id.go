package core

import (
	"sync/atomic"

	"pkt.systems/owlcore/schema"
)

// idAllocator hands out monotonic tab IDs starting at 1. IDs are never
// reused within a service instance.
type idAllocator struct {
	last atomic.Uint64
}

func (a *idAllocator) next() schema.TabID {
	return schema.TabID(a.last.Add(1))
}
