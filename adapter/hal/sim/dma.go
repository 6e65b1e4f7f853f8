package sim

import (
	"fmt"

	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// dmaGranule keeps simulated allocations apart so stray addresses miss.
const dmaGranule = 0x1000

// buffer is simulated DMA memory.
type buffer struct {
	h     *HAL
	data  []byte
	phys  uint64
	freed bool
}

// AllocDMA hands out zeroed memory at a fake physical address.
func (h *HAL) AllocDMA(size, align int) (hal.DMABuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: dma size %d", pkg.ErrInvalidParameter, size)
	}
	if align < dmaGranule {
		align = dmaGranule
	}
	if align&(align-1) != 0 {
		return nil, fmt.Errorf("%w: dma alignment %d", pkg.ErrInvalidParameter, align)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a := uint64(align)
	phys := (h.nextPhys + a - 1) &^ (a - 1)
	h.nextPhys = phys + (uint64(size)+dmaGranule-1)&^(dmaGranule-1) + dmaGranule
	b := &buffer{h: h, data: make([]byte, size), phys: phys}
	h.dma = append(h.dma, b)
	pkg.LogDebug(pkg.ComponentHAL, "sim dma alloc", "size", size, "phys", phys)
	return b, nil
}

func (b *buffer) Bytes() []byte    { return b.data }
func (b *buffer) PhysAddr() uint64 { return b.phys }

func (b *buffer) Segments(off, n int) ([]hal.Segment, error) {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, fmt.Errorf("%w: range %d+%d of %d byte buffer", pkg.ErrInvalidParameter, off, n, len(b.data))
	}
	page := b.h.opts.PageSize
	addr := b.phys + uint64(off)
	if page <= 0 {
		return []hal.Segment{{Addr: addr, Length: uint32(n)}}, nil
	}
	var segs []hal.Segment
	for n > 0 {
		room := page - int(addr%uint64(page))
		l := min(room, n)
		segs = append(segs, hal.Segment{Addr: addr, Length: uint32(l)})
		addr += uint64(l)
		n -= l
	}
	return segs, nil
}

func (b *buffer) Free() error {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if b.freed {
		return pkg.ErrClosed
	}
	b.freed = true
	for i, d := range b.h.dma {
		if d == b {
			b.h.dma = append(b.h.dma[:i], b.h.dma[i+1:]...)
			break
		}
	}
	return nil
}

// resolve returns the CPU view of n bytes at a simulated physical address.
// h.mu must be held.
func (h *HAL) resolve(addr uint64, n int) ([]byte, bool) {
	for _, b := range h.dma {
		if addr >= b.phys && addr+uint64(n) <= b.phys+uint64(len(b.data)) {
			off := addr - b.phys
			return b.data[off : off+uint64(n)], true
		}
	}
	return nil, false
}
