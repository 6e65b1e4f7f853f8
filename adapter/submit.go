package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/arcmsr/pkg"
	"github.com/ardnew/arcmsr/scsi"
)

// Submit posts a task to the adapter and returns without waiting for it.
// The task's Done callback runs once the adapter replies or the task's
// timeout abandons it.
//
// A task Submit refuses is never posted: its Response is set to
// FunctionRejected and the returned error explains why. Done is not called
// for refused tasks.
func (a *Adapter) Submit(t *Task) error {
	a.g.Lock()
	defer a.g.Unlock()

	if err := a.post(t); err != nil {
		t.Response = pkg.ServiceResponseFunctionRejected
		t.Status = pkg.TaskStatusNoStatus
		a.stats.Rejected++
		return err
	}
	return nil
}

// post validates t, fills a descriptor and hands it to the adapter.
// The gate must be held.
func (a *Adapter) post(t *Task) error {
	if !a.running {
		return pkg.ErrNotRunning
	}
	if t.state == taskPosted {
		return fmt.Errorf("%w: task already posted", pkg.ErrInvalidParameter)
	}
	if t.Target < 0 || t.Target >= MaxTargets || t.LUN < 0 || t.LUN >= MaxLUNs {
		return fmt.Errorf("%w: target %d lun %d", pkg.ErrRejected, t.Target, t.LUN)
	}
	if len(t.CDB) == 0 || len(t.CDB) > CDBSize {
		return fmt.Errorf("%w: cdb length %d", pkg.ErrInvalidParameter, len(t.CDB))
	}
	if t.Length > 0 && t.Buffer == nil {
		return fmt.Errorf("%w: %d byte transfer without buffer", pkg.ErrInvalidParameter, t.Length)
	}

	tag, ok := a.tags.Acquire()
	if !ok {
		pkg.LogWarn(pkg.ComponentSRB, "inbound request overrun", "inuse", a.tags.InUse())
		return pkg.ErrNoTag
	}

	srb := SRB{
		Target:    uint8(t.Target),
		LUN:       uint8(t.LUN),
		CDBLength: uint8(len(t.CDB)),
	}
	copy(srb.CDB[:], t.CDB)
	if t.Direction == DirOut {
		srb.Flags |= SRBFlagWrite
	}
	if t.Length > 0 {
		segs, err := t.Buffer.Segments(t.Offset, t.Length)
		if err == nil {
			err = srb.BuildSG(segs)
		}
		if err != nil {
			a.tags.Release(tag)
			pkg.LogWarn(pkg.ComponentSRB, "cannot map data buffer", "error", err)
			return err
		}
	}
	if a.cfg.CheckCDB || pkg.DebugEnabled(pkg.FacetSCSI) {
		checkTransferLength(&srb, t)
	}

	a.seq++
	if a.seq == 0 {
		a.seq = 1
	}
	srb.Context = a.seq
	slot := a.srbs.Bytes()[a.tags.Offset(tag):][:a.slotSize]
	srb.MarshalTo(slot)

	t.tag = tag
	t.context = srb.Context
	t.state = taskPosted
	t.Status = pkg.TaskStatusNoStatus
	t.Response = pkg.ServiceResponseRequestInProcess
	t.Realized = 0
	t.SenseValid = false
	a.pending[t.key()] = t
	if t.Timeout > 0 {
		t.timer = time.AfterFunc(t.Timeout, func() { a.abandon(t) })
	}

	word := PostWord(a.tags.Phys(tag), srb.Large())
	pkg.LogDebug(pkg.ComponentSRB, "posting command",
		"tag", tag, "target", t.Target, "lun", t.LUN, "op", scsi.OpName(t.CDB[0]),
		"sg", len(srb.SG), "word", word)
	a.regs.PostSRB(word)
	a.stats.Posted++
	return nil
}

// checkTransferLength warns when a READ/WRITE CDB asks for a different
// number of bytes than the S/G list maps.
func checkTransferLength(srb *SRB, t *Task) {
	want, ok := scsi.TransferLength(t.CDB, scsi.BlockSize)
	if !ok {
		return
	}
	if have := srb.SGLength(); want != have {
		pkg.LogWarn(pkg.ComponentSCSI, "transfer length does not match data buffer",
			"op", scsi.OpName(t.CDB[0]), "cdb", want, "sg", have)
	}
}

// abandon fires when a task's timeout expires before the adapter replies.
// The tag stays held: the adapter may still write the descriptor, and a
// late reply finds no pending task and returns the tag then.
func (a *Adapter) abandon(t *Task) {
	a.g.Lock()
	if t.state != taskPosted {
		a.g.Unlock()
		return
	}
	delete(a.pending, t.key())
	t.state = taskAbandoned
	t.Status = pkg.TaskStatusNoStatus
	t.Response = pkg.ServiceResponseTimeout
	a.stats.Abandoned++
	a.g.Unlock()

	pkg.LogWarn(pkg.ComponentSCSI, "task timed out", "target", t.Target, "lun", t.LUN, "tag", t.tag)
	t.finish()
}

// Execute submits t and waits for it to finish. If ctx ends first the task
// is abandoned as if its timeout had expired. The returned error is the
// submission error or [Task.Err].
func (a *Adapter) Execute(ctx context.Context, t *Task) error {
	done := make(chan struct{})
	user := t.Done
	t.Done = func(t *Task) {
		if user != nil {
			user(t)
		}
		close(done)
	}
	defer func() { t.Done = user }()

	if err := a.Submit(t); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		a.abandon(t)
		<-done
	}
	return t.Err()
}

// AbortTask is not supported by the adapter.
func (a *Adapter) AbortTask(target, lun int) pkg.ServiceResponse {
	pkg.LogDebug(pkg.ComponentSCSI, "abort task rejected", "target", target, "lun", lun)
	return pkg.ServiceResponseFunctionRejected
}

// ResetTarget is not supported by the adapter.
func (a *Adapter) ResetTarget(target int) pkg.ServiceResponse {
	pkg.LogDebug(pkg.ComponentSCSI, "target reset rejected", "target", target)
	return pkg.ServiceResponseFunctionRejected
}

// ResetLogicalUnit is not supported by the adapter.
func (a *Adapter) ResetLogicalUnit(target, lun int) pkg.ServiceResponse {
	pkg.LogDebug(pkg.ComponentSCSI, "logical unit reset rejected", "target", target, "lun", lun)
	return pkg.ServiceResponseFunctionRejected
}

// =============================================================================
// Completion
// =============================================================================

// drainReplies pops the completion port until it is empty, returning the
// tasks whose Done callbacks must run once the gate is released.
func (a *Adapter) drainReplies(done []*Task) []*Task {
	for {
		word := a.regs.PopReply()
		if word == QueueEmpty {
			return done
		}
		flags, phys := DecodeReply(word)

		tag, ok := a.tags.Lookup(phys)
		if !ok || !a.tags.Held(tag) {
			pkg.LogDebug(pkg.ComponentSRB, "reply names no outstanding tag", "word", word)
			a.stats.UnknownReply++
			continue
		}

		slot := a.srbs.Bytes()[a.tags.Offset(tag):][:a.slotSize]
		target, lun, context := SRBAddress(slot)
		t := a.pending[taskKey{target: target, lun: lun, context: context}]
		if t == nil {
			pkg.LogDebug(pkg.ComponentSRB, "reply for abandoned task",
				"word", word, "target", target, "lun", lun, "context", context)
			a.tags.Release(tag)
			a.stats.StaleReplies++
			continue
		}
		delete(a.pending, t.key())

		a.complete(t, slot, flags)
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.state = taskCompleted
		a.tags.Release(tag)
		a.stats.Completed++
		done = append(done, t)
	}
}

// complete translates the adapter's reply into the task outcome.
func (a *Adapter) complete(t *Task, slot []byte, flags uint32) {
	t.Status = pkg.TaskStatusGood
	t.Response = pkg.ServiceResponseTaskComplete
	if flags&ReplyFlagError == 0 {
		t.Realized = t.Length
		return
	}
	a.stats.Errors++

	status, sense := SRBStatus(slot)
	switch status {
	case DevStatusCheckCondition:
		pkg.LogDebug(pkg.ComponentSCSI, "check condition",
			"target", t.Target, "lun", t.LUN, "cdb", t.CDB, "sense", sense[:])
		t.Status = pkg.TaskStatusCheckCondition
		t.Sense = sense
		t.SenseValid = true
	case DevStatusSelectTimeout:
		pkg.LogDebug(pkg.ComponentSCSI, "selection timeout", "target", t.Target, "lun", t.LUN)
		t.Status = pkg.TaskStatusDeviceNotPresent
		t.Response = pkg.ServiceResponseDeliveryFailure
	case DevStatusAborted, DevStatusInitFail:
		pkg.LogDebug(pkg.ComponentSCSI, "device failure", "target", t.Target, "lun", t.LUN, "status", status)
		t.Status = pkg.TaskStatusDeliveryFailure
		t.Response = pkg.ServiceResponseDeliveryFailure
	default:
		pkg.LogDebug(pkg.ComponentSCSI, "scsi error", "target", t.Target, "lun", t.LUN, "status", status)
		t.Status = pkg.TaskStatus(status)
	}
}
