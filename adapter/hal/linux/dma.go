//go:build linux

package linux

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// dmaBuffer is locked anonymous memory with known physical pages.
type dmaBuffer struct {
	mem      []byte
	size     int
	pageSize int
	pages    []uint64 // physical address of each page
	freed    bool
}

// allocDMA maps size bytes the adapter can reach. Anything larger than a
// base page goes into hugepages so the buffer is physically contiguous.
func allocDMA(pagemap string, size, align int) (*dmaBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: dma size %d", pkg.ErrInvalidParameter, size)
	}
	pageSize := unix.Getpagesize()
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_POPULATE | unix.MAP_LOCKED
	if size > pageSize {
		pageSize = hugePageSize
		flags |= unix.MAP_HUGETLB
	}
	if size > pageSize {
		return nil, fmt.Errorf("%w: %d byte dma buffer exceeds one %d byte page",
			pkg.ErrTransferTooLarge, size, pageSize)
	}
	if align <= 0 || align&(align-1) != 0 || align > pageSize {
		return nil, fmt.Errorf("%w: dma alignment %d", pkg.ErrInvalidParameter, align)
	}

	length := roundUp(size, pageSize)
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", length, err)
	}
	b := &dmaBuffer{mem: mem, size: size, pageSize: pageSize}
	if b.pages, err = translate(pagemap, mem, pageSize); err != nil {
		unix.Munmap(mem)
		return nil, err
	}
	if !contiguous(b.pages, pageSize) {
		unix.Munmap(mem)
		return nil, fmt.Errorf("%w: dma pages not contiguous", pkg.ErrSegmentAddress)
	}
	pkg.LogDebug(pkg.ComponentHAL, "dma alloc", "size", size, "page", pageSize, "phys", b.pages[0])
	return b, nil
}

func (b *dmaBuffer) Bytes() []byte    { return b.mem[:b.size] }
func (b *dmaBuffer) PhysAddr() uint64 { return b.pages[0] }

func (b *dmaBuffer) Segments(off, n int) ([]hal.Segment, error) {
	if off < 0 || n < 0 || off+n > b.size {
		return nil, fmt.Errorf("%w: range %d+%d of %d byte buffer", pkg.ErrInvalidParameter, off, n, b.size)
	}
	return segments(b.pages, b.pageSize, off, n), nil
}

func (b *dmaBuffer) Free() error {
	if b.freed {
		return pkg.ErrClosed
	}
	b.freed = true
	return unix.Munmap(b.mem)
}

// translate looks up the physical address of every page of mem.
func translate(pagemap string, mem []byte, pageSize int) ([]uint64, error) {
	f, err := os.Open(pagemap)
	if err != nil {
		return nil, fmt.Errorf("open pagemap: %w", err)
	}
	defer f.Close()

	base := uintptr(unsafe.Pointer(&mem[0]))
	sys := uintptr(unix.Getpagesize())
	pages := make([]uint64, len(mem)/pageSize)
	var entry [pagemapEntry]byte
	for i := range pages {
		vaddr := base + uintptr(i*pageSize)
		if _, err := f.ReadAt(entry[:], int64(vaddr/sys)*pagemapEntry); err != nil {
			return nil, fmt.Errorf("read pagemap: %w", err)
		}
		phys, ok := decodePagemap(binary.NativeEndian.Uint64(entry[:]), uint64(sys))
		if !ok {
			return nil, fmt.Errorf("%w: pagemap hides physical addresses (need CAP_SYS_ADMIN)", pkg.ErrSegmentAddress)
		}
		pages[i] = phys
	}
	return pages, nil
}

// decodePagemap turns a pagemap entry into a page's physical address.
func decodePagemap(entry, pageSize uint64) (uint64, bool) {
	if entry&pagemapPresent == 0 {
		return 0, false
	}
	pfn := entry & pagemapPFNMask
	if pfn == 0 {
		return 0, false
	}
	return pfn * pageSize, true
}

// contiguous reports whether each page follows the previous one.
func contiguous(pages []uint64, pageSize int) bool {
	for i := 1; i < len(pages); i++ {
		if pages[i] != pages[i-1]+uint64(pageSize) {
			return false
		}
	}
	return len(pages) > 0
}

// segments maps [off, off+n) onto pages, merging physically adjacent runs.
func segments(pages []uint64, pageSize, off, n int) []hal.Segment {
	var segs []hal.Segment
	for n > 0 {
		page, in := off/pageSize, off%pageSize
		l := min(pageSize-in, n)
		addr := pages[page] + uint64(in)
		if k := len(segs) - 1; k >= 0 && segs[k].Addr+uint64(segs[k].Length) == addr {
			segs[k].Length += uint32(l)
		} else {
			segs = append(segs, hal.Segment{Addr: addr, Length: uint32(l)})
		}
		off += l
		n -= l
	}
	return segs
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}
