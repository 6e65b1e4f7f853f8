package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// Info describes an initialized adapter.
type Info struct {
	Bus             hal.Info
	Vendor          string
	Model           string
	FirmwareVersion string
	InstalledMemory uint32 // MiB
	Channels        uint32
	QueueDepth      uint32 // As advertised
	RequestSize     uint32 // As advertised
	Tags            int    // Tag pool capacity in use
	SlotSize        uint32 // Descriptor stride
}

// Stats counts adapter activity.
type Stats struct {
	Posted       uint64 // Tasks posted to the adapter
	Completed    uint64 // Tasks completed with any status
	Errors       uint64 // Completions carrying the error flag
	Abandoned    uint64 // Tasks that timed out
	Rejected     uint64 // Submissions refused before posting
	StaleReplies uint64 // Replies for abandoned tasks
	UnknownReply uint64 // Replies naming no outstanding tag
	Interrupts   uint64
	ConfigPolls  uint64

	TagsInUse    int
	MessageQueue MQStats
	Confirmed    DeviceMap
}

// Adapter drives one ArcMSR messaging unit through a HAL.
type Adapter struct {
	hal  hal.HAL
	cfg  Config
	regs *Registers
	g    *gate

	// Guarded by g.
	initialized bool
	running     bool
	tags        *TagPool
	srbs        hal.DMABuffer
	slotSize    uint32
	pending     map[taskKey]*Task
	seq         uint32
	mq          *messageQueue
	presence    presenceMap
	events      notifier
	client      *Session
	info        Info
	stats       Stats
	msgBuf      [FirmwareConfigSize]byte

	onDeviceEvent func(DeviceEvent)

	scanTimer *time.Timer
	cancel    context.CancelFunc
	loopDone  chan struct{}
}

// New creates an adapter bound to h. Call Init before Start.
func New(h hal.HAL, cfg Config) *Adapter {
	a := &Adapter{
		hal:     h,
		cfg:     cfg,
		g:       newGate(),
		pending: make(map[taskKey]*Task),
	}
	a.events.schedule = func() { go a.runEvents() }
	return a
}

// SetOnDeviceEvent sets the callback for unit arrival and departure.
// The callback runs outside the adapter's serialization point and may call
// back into the adapter.
func (a *Adapter) SetOnDeviceEvent(fn func(DeviceEvent)) {
	a.g.run(func() { a.onDeviceEvent = fn })
}

// =============================================================================
// Lifecycle
// =============================================================================

// Init brings up the HAL, waits for adapter firmware, reads the adapter
// configuration and sizes the command-slot pool. An adapter whose firmware
// never becomes ready, or which answers with a bad config signature, fails
// Init and must not be started.
func (a *Adapter) Init(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.g.Lock()
	defer a.g.Unlock()

	if a.initialized {
		return nil
	}
	if err := a.hal.Init(ctx); err != nil {
		return fmt.Errorf("hal init: %w", err)
	}
	a.regs = NewRegisters(a.hal.Registers())
	a.regs.MaskInterrupts()

	pkg.LogDebug(pkg.ComponentAdapter, "waiting for firmware")
	for tries := 0; !a.regs.FirmwareReady(); tries++ {
		if tries >= a.cfg.FirmwareReadyTries {
			pkg.LogError(pkg.ComponentAdapter, "timed out waiting for firmware")
			return pkg.ErrFirmwareTimeout
		}
		if err := pause(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
	}
	pkg.LogDebug(pkg.ComponentAdapter, "firmware OK")

	// drop anything the adapter left in the rbuffer
	if db := a.regs.Read32(RegOutboundDoorbell); db&OutboundDoorbellDataWriteOK != 0 {
		a.regs.Write32(RegOutboundDoorbell, db)
		a.regs.RingInboundDoorbell(InboundDoorbellDataReadOK)
	}

	cfg, err := a.getConfig(ctx)
	if err != nil {
		return err
	}

	depth := int(cfg.QueueDepth)
	if depth > a.cfg.MaxOutstanding {
		pkg.LogDebug(pkg.ComponentAdapter, "clamping command slots",
			"offered", depth, "limit", a.cfg.MaxOutstanding)
		depth = a.cfg.MaxOutstanding
	}
	if depth == 0 {
		return fmt.Errorf("%w: adapter advertised zero queue depth", pkg.ErrConfigSignature)
	}

	slot := SlotSize(cfg.RequestSize)
	srbs, err := a.hal.AllocDMA(depth*int(slot), SRBAlign)
	if err != nil {
		return fmt.Errorf("allocate command descriptors: %w", err)
	}
	if end := srbs.PhysAddr() + uint64(depth)*uint64(slot); end > 1<<32 {
		srbs.Free()
		return fmt.Errorf("%w: descriptor pool ends at 0x%x", pkg.ErrSegmentAddress, end)
	}
	tags, err := NewTagPool(depth, uint32(srbs.PhysAddr()), slot)
	if err != nil {
		srbs.Free()
		return err
	}
	pkg.LogDebug(pkg.ComponentSRB, "allocated command descriptors",
		"count", depth, "size", slot, "phys", srbs.PhysAddr())

	a.srbs = srbs
	a.tags = tags
	a.slotSize = slot
	a.mq = newMessageQueue(a.g, a.regs, a.cfg.MessageBufferSize)
	a.info = Info{
		Bus:             a.hal.Info(),
		Vendor:          cfg.Vendor,
		Model:           cfg.Model,
		FirmwareVersion: cfg.FirmwareVersion,
		InstalledMemory: cfg.InstalledMemory,
		Channels:        cfg.Channels,
		QueueDepth:      cfg.QueueDepth,
		RequestSize:     cfg.RequestSize,
		Tags:            depth,
		SlotSize:        slot,
	}
	a.initialized = true

	if FirmwareOutdated(cfg.FirmwareVersion) {
		pkg.LogWarn(pkg.ComponentAdapter, "please update adapter firmware",
			"version", cfg.FirmwareVersion, "minimum", MinFirmwareVersion)
	}
	pkg.LogInfo(pkg.ComponentAdapter, "adapter initialized",
		"vendor", cfg.Vendor, "model", cfg.Model, "firmware", cfg.FirmwareVersion, "tags", depth)
	return nil
}

// Start unmasks adapter interrupts, starts background rebuild, the
// interrupt loop and the device scan timer.
func (a *Adapter) Start(ctx context.Context) error {
	a.g.Lock()
	defer a.g.Unlock()

	if !a.initialized {
		return pkg.ErrNotInitialized
	}
	if a.running {
		return pkg.ErrAlreadyRunning
	}

	a.regs.UnmaskInterrupts(outboundIntHandled)
	if err := a.message(ctx, MsgStartBGRB); err != nil {
		pkg.LogWarn(pkg.ComponentAdapter, "start background rebuild", "error", err)
	}

	// the loop outlives ctx; only Stop ends it
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.loopDone = make(chan struct{})
	a.running = true
	a.mq.resume()
	go a.interruptLoop(loopCtx, a.loopDone)

	// first scan as soon as possible
	a.scanTimer = time.AfterFunc(time.Millisecond, a.scan)
	pkg.LogInfo(pkg.ComponentAdapter, "adapter started")
	return nil
}

// Stop halts background rebuild, flushes the adapter cache, masks
// interrupts and stops the interrupt loop and scan timer. Posted tasks are
// left to their timeouts.
func (a *Adapter) Stop() error {
	a.g.Lock()
	if !a.running {
		a.g.Unlock()
		return pkg.ErrNotRunning
	}
	a.running = false
	a.scanTimer.Stop()
	a.mq.shutdown(pkg.ErrNotRunning)

	ctx := context.Background()
	if err := a.message(ctx, MsgStopBGRB); err != nil {
		pkg.LogWarn(pkg.ComponentAdapter, "stop background rebuild", "error", err)
	}
	if err := a.message(ctx, MsgFlushCache); err != nil {
		pkg.LogWarn(pkg.ComponentAdapter, "flush cache", "error", err)
	}
	a.regs.MaskInterrupts()
	cancel, done := a.cancel, a.loopDone
	a.g.Unlock()

	cancel()
	<-done
	pkg.LogInfo(pkg.ComponentAdapter, "adapter stopped")
	return nil
}

// Close stops a running adapter and releases its resources.
func (a *Adapter) Close() error {
	if err := a.Stop(); err != nil && err != pkg.ErrNotRunning {
		return err
	}
	a.g.Lock()
	if a.srbs != nil {
		if err := a.srbs.Free(); err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "free descriptors", "error", err)
		}
		a.srbs = nil
	}
	a.initialized = false
	a.g.Unlock()
	return a.hal.Close()
}

// Running reports whether the adapter is started.
func (a *Adapter) Running() bool {
	a.g.Lock()
	defer a.g.Unlock()
	return a.running
}

// =============================================================================
// Management
// =============================================================================

// Info returns the adapter description gathered during Init.
func (a *Adapter) Info() Info {
	a.g.Lock()
	defer a.g.Unlock()
	return a.info
}

// Stats returns a snapshot of adapter counters.
func (a *Adapter) Stats() Stats {
	a.g.Lock()
	defer a.g.Unlock()
	s := a.stats
	if a.tags != nil {
		s.TagsInUse = a.tags.InUse()
	}
	if a.mq != nil {
		s.MessageQueue = a.mq.stats
	}
	s.Confirmed = a.presence.confirmed
	return s
}

// Devices returns the units confirmed present, in target/lun order.
func (a *Adapter) Devices() []DeviceEvent {
	a.g.Lock()
	defer a.g.Unlock()
	var out []DeviceEvent
	for target := 0; target < MaxTargets; target++ {
		for lun := 0; lun < MaxLUNs; lun++ {
			if a.presence.confirmed.Present(target, lun) {
				out = append(out, DeviceEvent{Kind: DeviceArrived, Target: target, LUN: lun})
			}
		}
	}
	return out
}

// FlushCache asks the adapter to write back its cache and waits for the
// acknowledge.
func (a *Adapter) FlushCache(ctx context.Context) error {
	a.g.Lock()
	defer a.g.Unlock()
	if !a.initialized {
		return pkg.ErrNotInitialized
	}
	return a.message(ctx, MsgFlushCache)
}

// Rescan requests a device map now instead of waiting for the scan timer.
// The reply is handled asynchronously like any other poll.
func (a *Adapter) Rescan() error {
	a.g.Lock()
	defer a.g.Unlock()
	if !a.running {
		return pkg.ErrNotRunning
	}
	a.regs.SendMessage(MsgGetConfig)
	a.stats.ConfigPolls++
	return nil
}

// =============================================================================
// Message Unit Commands
// =============================================================================

// message sends an inbound message and waits for its acknowledge.
// The gate must be held; the interrupt loop stays parked meanwhile.
func (a *Adapter) message(ctx context.Context, code uint32) error {
	pkg.LogDebug(pkg.ComponentAdapter, "message", "code", MsgName(code))
	a.regs.SendMessage(code)
	return a.waitMessage(ctx)
}

// waitMessage polls for the message 0 interrupt and clears it.
func (a *Adapter) waitMessage(ctx context.Context) error {
	for tries := 0; tries < a.cfg.MessageWaitTries; tries++ {
		if a.regs.Read32(RegOutboundIntStatus)&OutboundIntMessage0 != 0 {
			a.regs.Write32(RegOutboundIntStatus, OutboundIntMessage0)
			return nil
		}
		if err := pause(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
	}
	return pkg.ErrMessageTimeout
}

// getConfig requests and decodes the adapter configuration.
func (a *Adapter) getConfig(ctx context.Context) (FirmwareConfig, error) {
	var cfg FirmwareConfig
	pkg.LogDebug(pkg.ComponentAdapter, "requesting adapter config")
	if err := a.message(ctx, MsgGetConfig); err != nil {
		return cfg, fmt.Errorf("get config: %w", err)
	}
	a.regs.ReadBytes(RegMessageWBuffer, a.msgBuf[:])
	ParseFirmwareConfig(a.msgBuf[:], &cfg)
	if cfg.Signature != ConfigSignature {
		pkg.LogError(pkg.ComponentAdapter, "adapter responded to config request with bad data",
			"signature", cfg.Signature)
		return cfg, fmt.Errorf("%w: 0x%08x", pkg.ErrConfigSignature, cfg.Signature)
	}
	return cfg, nil
}

// scan is the device scan timer. It posts a config request and re-arms
// itself; the reply is handled by the message interrupt.
func (a *Adapter) scan() {
	a.g.Lock()
	defer a.g.Unlock()
	if !a.running {
		return
	}
	pkg.LogDebug(pkg.ComponentRescan, "polling device map")
	a.regs.SendMessage(MsgGetConfig)
	a.stats.ConfigPolls++
	a.scanTimer.Reset(a.cfg.ScanInterval)
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
