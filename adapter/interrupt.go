package adapter

import (
	"context"
	"errors"

	"github.com/ardnew/arcmsr/pkg"
)

// interruptLoop waits for adapter interrupts and dispatches them until ctx
// is cancelled.
func (a *Adapter) interruptLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	pkg.LogDebug(pkg.ComponentInterrupt, "interrupt loop started")
	for {
		if err := a.hal.WaitInterrupt(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, pkg.ErrClosed) {
				pkg.LogDebug(pkg.ComponentInterrupt, "interrupt loop stopped")
				return
			}
			pkg.LogWarn(pkg.ComponentInterrupt, "wait for interrupt", "error", err)
			continue
		}
		a.handleInterrupt()
		if err := a.hal.AckInterrupt(); err != nil {
			pkg.LogWarn(pkg.ComponentInterrupt, "re-arm interrupt", "error", err)
		}
	}
}

// handleInterrupt services every pending outbound source. Task callbacks
// run after the gate is released.
func (a *Adapter) handleInterrupt() {
	a.g.Lock()
	status := a.regs.AckOutboundIntStatus()
	a.stats.Interrupts++
	if status == 0 {
		a.g.Unlock()
		return
	}
	pkg.LogDebug(pkg.ComponentInterrupt, "interrupt", "status", status)

	if status&OutboundIntDoorbell != 0 {
		db := a.regs.AckOutboundDoorbell()
		a.mq.handleDoorbell(db)
	}
	var done []*Task
	if status&OutboundIntPostQueue != 0 {
		done = a.drainReplies(nil)
	}
	if status&OutboundIntMessage0 != 0 {
		a.handleMessage()
	}
	a.g.Unlock()

	for _, t := range done {
		t.finish()
	}
}

// handleMessage decodes a message reply. Only config replies are expected
// here; anything else is logged and dropped.
func (a *Adapter) handleMessage() {
	a.regs.ReadBytes(RegMessageWBuffer, a.msgBuf[:])
	var cfg FirmwareConfig
	if !ParseFirmwareConfig(a.msgBuf[:], &cfg) || cfg.Signature != ConfigSignature {
		pkg.LogDebug(pkg.ComponentMessages, "unrecognized message reply", "signature", cfg.Signature)
		return
	}
	if a.presence.update(cfg.DeviceMap) {
		pkg.LogDebug(pkg.ComponentRescan, "device map changed")
		a.events.add(actionRescan)
	}
}

// runEvents is the deferred event handler. It resolves presence changes
// and reports them until no work remains.
func (a *Adapter) runEvents() {
	for {
		a.g.Lock()
		if a.events.done() {
			a.g.Unlock()
			return
		}
		var events []DeviceEvent
		if a.events.take(actionRescan) {
			events = a.presence.resolve()
		}
		fn := a.onDeviceEvent
		a.g.Unlock()

		for _, e := range events {
			pkg.LogInfo(pkg.ComponentEvent, "device "+e.Kind.String(),
				"target", e.Target, "lun", e.LUN, "scsi_target", e.SCSITarget())
			if fn != nil {
				fn(e)
			}
		}
	}
}
