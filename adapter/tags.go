package adapter

import (
	"fmt"

	"github.com/ardnew/arcmsr/pkg"
)

// MaxOutstanding caps the number of in-flight commands. Replies identify a
// descriptor by its physical address shifted right by five bits, and the
// pool layout assumes a tag fits in one byte.
const MaxOutstanding = 256

// Tag identifies one command slot.
type Tag uint8

// TagPool vends command slots backed by a contiguous descriptor region.
//
// TagPool is not safe for concurrent use; the adapter guards it with its gate.
type TagPool struct {
	free     []Tag  // LIFO free list
	held     []bool // held[tag] while vended
	base     uint32 // physical address of slot 0
	slotSize uint32
}

// NewTagPool creates a pool of n slots of slotSize bytes starting at
// physical address base. n is clamped to [MaxOutstanding].
func NewTagPool(n int, base, slotSize uint32) (*TagPool, error) {
	if n <= 0 || slotSize == 0 {
		return nil, fmt.Errorf("%w: tag pool of %d slots x %d bytes", pkg.ErrInvalidParameter, n, slotSize)
	}
	if n > MaxOutstanding {
		n = MaxOutstanding
	}
	p := &TagPool{
		free:     make([]Tag, 0, n),
		held:     make([]bool, n),
		base:     base,
		slotSize: slotSize,
	}
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, Tag(i))
	}
	return p, nil
}

// Cap returns the number of slots.
func (p *TagPool) Cap() int {
	return len(p.held)
}

// InUse returns the number of vended slots.
func (p *TagPool) InUse() int {
	return len(p.held) - len(p.free)
}

// Acquire vends a free tag. It never blocks; ok is false when every slot is
// in flight.
func (p *TagPool) Acquire() (tag Tag, ok bool) {
	n := len(p.free)
	if n == 0 {
		pkg.LogDebug(pkg.ComponentSRB, "no free tags to vend")
		return 0, false
	}
	tag = p.free[n-1]
	p.free = p.free[:n-1]
	p.held[tag] = true
	pkg.LogDebug(pkg.ComponentSRB, "vending tag", "tag", tag)
	return tag, true
}

// Release returns a tag to the pool. Releasing a tag that is not held is
// logged and ignored.
func (p *TagPool) Release(tag Tag) {
	if int(tag) >= len(p.held) || !p.held[tag] {
		pkg.LogWarn(pkg.ComponentSRB, "release of unheld tag", "tag", tag)
		return
	}
	p.held[tag] = false
	p.free = append(p.free, tag)
	pkg.LogDebug(pkg.ComponentSRB, "tag returned", "tag", tag)
}

// Held reports whether tag is currently vended.
func (p *TagPool) Held(tag Tag) bool {
	return int(tag) < len(p.held) && p.held[tag]
}

// Phys returns the physical address of a slot.
func (p *TagPool) Phys(tag Tag) uint32 {
	return p.base + uint32(tag)*p.slotSize
}

// Offset returns the byte offset of a slot within the descriptor region.
func (p *TagPool) Offset(tag Tag) int {
	return int(tag) * int(p.slotSize)
}

// Lookup maps a descriptor physical address back to its tag. Addresses
// outside the pool, or not on a slot boundary, are rejected.
func (p *TagPool) Lookup(phys uint32) (Tag, bool) {
	if phys < p.base {
		return 0, false
	}
	off := phys - p.base
	if off >= uint32(len(p.held))*p.slotSize || off%p.slotSize != 0 {
		return 0, false
	}
	return Tag(off / p.slotSize), true
}
