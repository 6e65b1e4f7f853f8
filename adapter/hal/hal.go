package hal

import (
	"context"
)

// MMIO is a memory-mapped register window.
//
// Load32 and Store32 perform exactly one 32-bit access at a byte offset.
// Values are in host byte order as they sit in memory; callers own any
// byte-order conversion.
type MMIO interface {
	Load32(off uint32) uint32
	Store32(off uint32, v uint32)
}

// Segment is one physically contiguous piece of a DMA buffer.
type Segment struct {
	Addr   uint64 // Bus/physical address
	Length uint32 // Length in bytes
}

// DMABuffer is host memory the adapter can reach by physical address.
type DMABuffer interface {
	// Bytes returns the CPU view of the buffer.
	Bytes() []byte

	// PhysAddr returns the bus address of Bytes()[0].
	PhysAddr() uint64

	// Segments returns the physical segments covering Bytes()[off:off+n],
	// in order. Adjacent pages are coalesced where contiguous.
	Segments(off, n int) ([]Segment, error)

	// Free releases the buffer. The buffer must not be used afterwards.
	Free() error
}

// Info describes the adapter a HAL is bound to.
type Info struct {
	Address  string // Bus location, e.g. PCI "0000:03:00.0"
	VendorID uint16
	DeviceID uint16
	IRQ      int
}

// HAL defines the hardware abstraction the adapter core drives.
//
// A HAL exposes the messaging-unit register window, DMA-capable memory and
// a single interrupt source. The core implements the whole protocol; the
// HAL only moves bits.
//
// Register accessors must be safe for concurrent use. WaitInterrupt is only
// ever called from one goroutine.
type HAL interface {
	// Lifecycle

	// Init maps the register window and prepares the interrupt source.
	// The context can be used to cancel initialization.
	Init(ctx context.Context) error

	// Close releases all resources associated with the HAL.
	// After Close returns, the HAL should not be used.
	Close() error

	// Info returns the bus identity of the bound adapter.
	Info() Info

	// Registers

	// Registers returns the messaging-unit window. Valid after Init.
	Registers() MMIO

	// Memory

	// AllocDMA returns a zeroed, physically contiguous buffer of at least
	// size bytes whose physical address is aligned to align bytes.
	AllocDMA(size, align int) (DMABuffer, error)

	// Interrupts

	// WaitInterrupt blocks until the adapter asserts its interrupt line or
	// ctx is done. The line stays masked at the HAL level until
	// AckInterrupt is called.
	WaitInterrupt(ctx context.Context) error

	// AckInterrupt re-arms the interrupt source after the handler ran.
	AckInterrupt() error
}
