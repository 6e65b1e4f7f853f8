//go:build linux

package linux

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// HAL drives a real adapter through sysfs and UIO.
type HAL struct {
	opts Options
	dev  Device

	mu      sync.Mutex
	regs    []byte // BAR0 mapping
	cfgfd   int
	uiofd   int
	poller  *poller
	buffers []*dmaBuffer
	closed  bool
}

// Open locates the adapter named by opts. The device is not touched until
// Init.
func Open(opts Options) (hal.HAL, error) {
	opts.defaults()
	dev, err := lookup(opts.SysfsRoot, opts.Address)
	if err != nil {
		return nil, err
	}
	if dev.UIO == "" {
		return nil, fmt.Errorf("%w: %s is bound to %q, not a uio driver",
			pkg.ErrNotSupported, dev.Address, dev.Driver)
	}
	return &HAL{opts: opts, dev: dev, cfgfd: -1, uiofd: -1}, nil
}

// Init maps BAR0, enables memory decoding and bus mastering, and opens the
// UIO node.
func (h *HAL) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.regs != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sysfs := filepath.Join(h.opts.SysfsRoot, h.dev.Address)
	fd, err := unix.Open(filepath.Join(sysfs, "resource0"), unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open resource0: %w", err)
	}
	regs, err := unix.Mmap(fd, 0, adapter.MURegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		return fmt.Errorf("map bar0: %w", err)
	}

	cfgfd, err := unix.Open(filepath.Join(sysfs, "config"), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Munmap(regs)
		return fmt.Errorf("open config: %w", err)
	}
	if err := enableDevice(cfgfd); err != nil {
		unix.Close(cfgfd)
		unix.Munmap(regs)
		return err
	}

	uiofd, err := unix.Open(filepath.Join(h.opts.DevRoot, h.dev.UIO), unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(cfgfd)
		unix.Munmap(regs)
		return fmt.Errorf("open %s: %w", h.dev.UIO, err)
	}
	p, err := newPoller(uiofd)
	if err != nil {
		unix.Close(uiofd)
		unix.Close(cfgfd)
		unix.Munmap(regs)
		return fmt.Errorf("poller: %w", err)
	}

	h.regs, h.cfgfd, h.uiofd, h.poller = regs, cfgfd, uiofd, p
	pkg.LogInfo(pkg.ComponentHAL, "adapter mapped",
		"address", h.dev.Address, "device", fmt.Sprintf("%04x:%04x", h.dev.VendorID, h.dev.DeviceID),
		"bar0", h.dev.BAR0, "uio", h.dev.UIO)
	return h.unmaskLine()
}

// enableDevice turns on memory decoding and bus mastering.
func enableDevice(cfgfd int) error {
	var b [2]byte
	if _, err := unix.Pread(cfgfd, b[:], pciCommandOffset); err != nil {
		return fmt.Errorf("read pci command: %w", err)
	}
	cmd := binary.LittleEndian.Uint16(b[:])
	want := cmd | pciCommandMemory | pciCommandBusMaster
	if want == cmd {
		return nil
	}
	binary.LittleEndian.PutUint16(b[:], want)
	if _, err := unix.Pwrite(cfgfd, b[:], pciCommandOffset); err != nil {
		return fmt.Errorf("write pci command: %w", err)
	}
	pkg.LogDebug(pkg.ComponentHAL, "enabled pci device", "command", want)
	return nil
}

// Close unmaps the registers and releases every DMA buffer still held.
func (h *HAL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.poller != nil {
		h.poller.close()
	}
	for _, b := range h.buffers {
		if !b.freed {
			b.Free()
		}
	}
	h.buffers = nil
	if h.uiofd >= 0 {
		unix.Close(h.uiofd)
	}
	if h.cfgfd >= 0 {
		unix.Close(h.cfgfd)
	}
	if h.regs != nil {
		return unix.Munmap(h.regs)
	}
	return nil
}

// Info returns the bound PCI function.
func (h *HAL) Info() hal.Info {
	return hal.Info{
		Address:  h.dev.Address,
		VendorID: h.dev.VendorID,
		DeviceID: h.dev.DeviceID,
		IRQ:      h.dev.IRQ,
	}
}

// Registers returns the BAR0 window.
func (h *HAL) Registers() hal.MMIO {
	return bar0(h.regs)
}

// AllocDMA maps locked memory and records it for Close.
func (h *HAL) AllocDMA(size, align int) (hal.DMABuffer, error) {
	b, err := allocDMA(h.opts.Pagemap, size, align)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.buffers = append(h.buffers, b)
	h.mu.Unlock()
	return b, nil
}

// WaitInterrupt blocks until the adapter raises its line.
func (h *HAL) WaitInterrupt(ctx context.Context) error {
	count, err := h.poller.wait(ctx)
	if err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentInterrupt, "uio interrupt", "count", count)
	return nil
}

// AckInterrupt re-enables the line; uio_pci_generic masks it on delivery.
func (h *HAL) AckInterrupt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return pkg.ErrClosed
	}
	return h.unmaskLine()
}

// unmaskLine writes 1 to the UIO node. h.mu must be held.
func (h *HAL) unmaskLine() error {
	var one [4]byte
	binary.NativeEndian.PutUint32(one[:], 1)
	if _, err := unix.Write(h.uiofd, one[:]); err != nil {
		return fmt.Errorf("unmask interrupt: %w", err)
	}
	return nil
}

func (h *HAL) String() string {
	return fmt.Sprintf("linux(%s %04x:%04x)", h.dev.Address, h.dev.VendorID, h.dev.DeviceID)
}

// bar0 is the mapped register window. Accesses are single 32-bit loads and
// stores so the device sees one bus cycle each.
type bar0 []byte

func (m bar0) Load32(off uint32) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m[off])))
}

func (m bar0) Store32(off uint32, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m[off])), v)
}
