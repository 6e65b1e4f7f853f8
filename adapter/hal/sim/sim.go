package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// Bus identity reported by the simulator.
const (
	VendorID = 0x17D3
	DeviceID = 0x1120
)

// DefaultPhysBase is where simulated DMA memory starts.
const DefaultPhysBase = 0x10000000

// Options configures the simulated adapter.
type Options struct {
	Vendor          string
	Model           string
	FirmwareVersion string
	QueueDepth      uint32
	RequestSize     uint32
	InstalledMemory uint32 // MiB
	Channels        uint32

	// FirmwareDelay postpones the firmware-ready flag after Init.
	// FirmwareNotReady never sets it.
	FirmwareDelay    time.Duration
	FirmwareNotReady bool

	// BadSignature corrupts config replies.
	BadSignature bool

	// MuteMessages suppresses message acknowledges.
	MuteMessages bool

	// StaleDoorbell leaves an unread rbuffer doorbell pending at Init.
	StaleDoorbell bool

	// HoldReplies parks completions until ReleaseReplies or ReleaseNext.
	HoldReplies bool

	// StallInbound never consumes the ioctl wbuffer, so the host never
	// sees DATA_READ_OK for the message channel.
	StallInbound bool

	// Echo returns message-channel bytes verbatim instead of serving the
	// management protocol.
	Echo bool

	// PhysBase is the first simulated DMA address. PageSize splits DMA
	// segments at page boundaries; zero keeps buffers contiguous.
	PhysBase uint64
	PageSize int
}

// DefaultOptions returns a healthy adapter with a full queue.
func DefaultOptions() Options {
	return Options{
		Vendor:          "Areca Technology Corp.",
		Model:           "ARC-1220",
		FirmwareVersion: "V1.42 2007-10-15",
		QueueDepth:      adapter.MaxOutstanding,
		RequestSize:     adapter.SRBMaxSize,
		InstalledMemory: 256,
		Channels:        8,
		PhysBase:        DefaultPhysBase,
	}
}

// Stats counts simulated firmware activity.
type Stats struct {
	Messages    []uint32 // Inbound message codes, in order
	Posted      int      // Descriptors received
	Completed   int      // Replies queued
	ReadOKs     int      // Host rbuffer acknowledges
	InboundMsgs int      // Message-channel chunks received
	Large       int      // Descriptors posted with the large-frame flag
}

// HAL is a simulated adapter: a register file with firmware behaviour
// attached to its write side, in-memory DMA and volumes.
type HAL struct {
	opts Options

	mu      sync.Mutex
	regs    [adapter.MURegionSize]byte
	armed   bool
	readyAt time.Time

	dma      []*buffer
	nextPhys uint64

	volumes   [adapter.MaxTargets][adapter.MaxLUNs]Volume
	deviceMap adapter.DeviceMap

	replies []uint32
	held    []uint32

	mgmtIn   []byte // partial request frames
	mgmtOut  []byte // reply bytes not yet in the rbuffer
	rbufBusy bool   // rbuffer holds data the host has not acknowledged

	stats Stats

	irq       chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a simulated adapter.
func New(opts Options) *HAL {
	if opts.PhysBase == 0 {
		opts.PhysBase = DefaultPhysBase
	}
	return &HAL{
		opts:     opts,
		nextPhys: opts.PhysBase,
		irq:      make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// =============================================================================
// hal.HAL
// =============================================================================

// Init resets the register file and boots the simulated firmware.
func (h *HAL) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.regs[:])
	h.armed = true
	h.readyAt = time.Now().Add(h.opts.FirmwareDelay)
	h.store(adapter.RegOutboundIntMask, adapter.OutboundIntAll)
	if h.opts.StaleDoorbell {
		h.store(adapter.RegIoctlRBuffer, 0)
		h.store(adapter.RegOutboundDoorbell, adapter.OutboundDoorbellDataWriteOK)
		h.rbufBusy = true
	}
	pkg.LogDebug(pkg.ComponentHAL, "simulated adapter initialized", "model", h.opts.Model)
	return nil
}

// Close releases the simulator and wakes any interrupt waiter.
func (h *HAL) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// Info returns the simulated bus identity.
func (h *HAL) Info() hal.Info {
	return hal.Info{Address: "sim:0", VendorID: VendorID, DeviceID: DeviceID}
}

// Registers returns the simulated register window.
func (h *HAL) Registers() hal.MMIO {
	return mmio{h}
}

// WaitInterrupt blocks until the simulated line is asserted.
func (h *HAL) WaitInterrupt(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return pkg.ErrClosed
	case <-h.irq:
		h.mu.Lock()
		h.armed = false
		h.mu.Unlock()
		return nil
	}
}

// AckInterrupt re-arms the line, re-raising it if sources are still pending.
func (h *HAL) AckInterrupt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = true
	h.updateLine()
	return nil
}

// =============================================================================
// Test Controls
// =============================================================================

// Attach exports v as target/lun. The device map changes at once; the host
// notices on its next poll.
func (h *HAL) Attach(target, lun int, v Volume) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volumes[target][lun] = v
	h.deviceMap[target] |= 1 << lun
}

// Detach removes target/lun.
func (h *HAL) Detach(target, lun int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volumes[target][lun] = nil
	h.deviceMap[target] &^= 1 << lun
}

// SetDeviceMap overrides the reported device map without touching volumes.
func (h *HAL) SetDeviceMap(m adapter.DeviceMap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceMap = m
}

// SetHoldReplies switches reply parking on or off.
func (h *HAL) SetHoldReplies(hold bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts.HoldReplies = hold
}

// ReleaseReplies executes parked descriptors and queues their replies.
func (h *HAL) ReleaseReplies() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	held := h.held
	h.held = nil
	for _, word := range held {
		h.execute(word)
	}
	return len(held)
}

// ReleaseNext executes the oldest parked descriptor and queues its reply.
// It reports false when nothing is parked.
func (h *HAL) ReleaseNext() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.held) == 0 {
		return false
	}
	word := h.held[0]
	h.held = h.held[1:]
	h.execute(word)
	return true
}

// Held returns the number of parked descriptors.
func (h *HAL) Held() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.held)
}

// InjectReply queues a raw reply word, as a misbehaving adapter might.
func (h *HAL) InjectReply(word uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushReply(word)
}

// Stats returns a snapshot of firmware counters.
func (h *HAL) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stats
	s.Messages = append([]uint32(nil), h.stats.Messages...)
	return s
}

// =============================================================================
// Register File
// =============================================================================

type mmio struct{ h *HAL }

func (m mmio) Load32(off uint32) uint32 {
	h := m.h
	h.mu.Lock()
	defer h.mu.Unlock()

	var v uint32
	switch off {
	case adapter.RegOutboundQueuePort:
		v = h.popReply()
	case adapter.RegOutboundMsgaddr1:
		if !h.opts.FirmwareNotReady && !time.Now().Before(h.readyAt) {
			v = adapter.OutboundMsg1FirmwareOK
		}
	default:
		v = h.load(off)
	}
	// hand back the raw memory word
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return binary.NativeEndian.Uint32(b[:])
}

func (m mmio) Store32(off uint32, raw uint32) {
	h := m.h
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], raw)
	v := binary.LittleEndian.Uint32(b[:])

	h.mu.Lock()
	defer h.mu.Unlock()

	switch off {
	case adapter.RegInboundMsgaddr0:
		h.store(off, v)
		h.message(v)
	case adapter.RegInboundDoorbell:
		h.doorbell(v)
	case adapter.RegInboundQueuePort:
		h.post(v)
	case adapter.RegOutboundIntStatus, adapter.RegOutboundDoorbell:
		// write one to clear
		h.store(off, h.load(off)&^v)
		h.updateLine()
	case adapter.RegOutboundIntMask:
		h.store(off, v&adapter.OutboundIntAll)
		h.updateLine()
	default:
		h.store(off, v)
	}
}

func (h *HAL) load(off uint32) uint32 {
	return binary.LittleEndian.Uint32(h.regs[off:])
}

func (h *HAL) store(off, v uint32) {
	binary.LittleEndian.PutUint32(h.regs[off:], v)
}

// raise sets outbound interrupt status bits.
func (h *HAL) raise(bits uint32) {
	h.store(adapter.RegOutboundIntStatus, h.load(adapter.RegOutboundIntStatus)|bits)
	h.updateLine()
}

// updateLine signals the interrupt waiter if an unmasked source is pending.
func (h *HAL) updateLine() {
	pending := h.load(adapter.RegOutboundIntStatus) &^ h.load(adapter.RegOutboundIntMask)
	if pending == 0 || !h.armed {
		return
	}
	select {
	case h.irq <- struct{}{}:
	default:
	}
}

func (h *HAL) String() string {
	return fmt.Sprintf("sim(%s %s)", h.opts.Model, h.opts.FirmwareVersion)
}
