package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ardnew/arcmsr/pkg"
)

// MessageBufferSize is the default byte capacity of each message ring.
const MessageBufferSize = 4096

// mqFlags holds the sticky flow-control state of the byte-stream channel.
type mqFlags uint8

const (
	// mqOverflow: adapter data is held in the rbuffer because the outbound
	// ring had no room; it must be re-pulled once a reader frees space.
	mqOverflow mqFlags = 1 << iota

	// mqUnderflow: nothing is queued for the adapter, so the next insert
	// must kick the drain itself.
	mqUnderflow
)

// MQStats counts byte-stream channel activity.
type MQStats struct {
	InboundBytes   uint64 // Bytes handed to the adapter
	OutboundBytes  uint64 // Bytes accepted from the adapter
	InboundWakes   uint64 // Producer wakeups after the inbound ring drained
	OutboundStalls uint64 // Times adapter data was held for lack of room
}

// messageQueue is the byte-stream transport layered over the ioctl staging
// buffers and the data doorbells. All methods require the gate to be held.
type messageQueue struct {
	g        *gate
	regs     *Registers
	inbound  *Ring
	outbound *Ring
	flags    mqFlags
	halt     error // fails producers waiting for space; cleared by resume
	wstage   [IoctlBufferSize]byte
	rstage   [IoctlBufferSize]byte
	stats    MQStats
}

func newMessageQueue(g *gate, regs *Registers, size int) *messageQueue {
	return &messageQueue{
		g:        g,
		regs:     regs,
		inbound:  NewRing(size + 1),
		outbound: NewRing(size + 1),
		flags:    mqUnderflow,
	}
}

// inboundInsert queues p for the adapter, sleeping until the inbound ring
// has room. If the channel was idle, the first chunk is handed over at once.
func (q *messageQueue) inboundInsert(ctx context.Context, p []byte) error {
	if len(p) > q.inbound.Cap()-1 {
		return fmt.Errorf("%w: %d bytes exceeds %d", pkg.ErrTransferTooLarge, len(p), q.inbound.Cap()-1)
	}
	stop := context.AfterFunc(ctx, func() {
		q.g.run(func() { q.g.wakeup(q.g.inbound) })
	})
	defer stop()

	for {
		if q.inbound.Insert(p) {
			if q.flags&mqUnderflow != 0 {
				pkg.LogDebug(pkg.ComponentMessages, "kicking adapter with inbound message", "len", len(p))
				q.flags &^= mqUnderflow
				q.inboundWrite()
			} else {
				pkg.LogDebug(pkg.ComponentMessages, "queued inbound message", "len", len(p))
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.halt != nil {
			return q.halt
		}
		pkg.LogDebug(pkg.ComponentMessages, "waiting for inbound queue space", "len", len(p))
		q.g.sleep(q.g.inbound)
	}
}

// inboundWrite moves the next chunk into the ioctl wbuffer and rings the
// adapter. With nothing left it marks underflow and wakes every producer.
func (q *messageQueue) inboundWrite() {
	n := q.inbound.Remove(q.wstage[IoctlLengthSize:])
	if n > 0 {
		binary.LittleEndian.PutUint32(q.wstage[:IoctlLengthSize], uint32(n))
		q.regs.WriteBytes(RegIoctlWBuffer, q.wstage[:IoctlLengthSize+n])
		q.regs.RingInboundDoorbell(InboundDoorbellDataWriteOK)
		q.stats.InboundBytes += uint64(n)
		pkg.LogDebug(pkg.ComponentMessages, "posted message bytes to adapter", "len", n)
		return
	}
	q.flags |= mqUnderflow
	q.stats.InboundWakes++
	q.g.wakeup(q.g.inbound)
	pkg.LogDebug(pkg.ComponentMessages, "inbound buffer empty, waking writers")
}

// outboundRead pulls the ioctl rbuffer into the outbound ring. The adapter
// is only acknowledged when the data fit; otherwise it is left holding the
// data and overflow is set.
func (q *messageQueue) outboundRead() {
	n := int(q.regs.Read32(RegIoctlRBuffer))
	if n > IoctlDataSize {
		pkg.LogWarn(pkg.ComponentMessages, "adapter message length out of range", "len", n)
		n = IoctlDataSize
	}
	data := q.rstage[:n]
	q.regs.ReadBytes(RegIoctlRBuffer+IoctlLengthSize, data)
	if q.outbound.Insert(data) {
		q.regs.RingInboundDoorbell(InboundDoorbellDataReadOK)
		q.stats.OutboundBytes += uint64(n)
		q.g.wakeup(q.g.outbound)
		pkg.LogDebug(pkg.ComponentMessages, "got outbound message data from adapter", "len", n)
		return
	}
	q.flags |= mqOverflow
	q.stats.OutboundStalls++
	pkg.LogDebug(pkg.ComponentMessages, "no room for outbound data, stalling in adapter", "len", n)
}

// outboundRemove drains available data into p. If the ring is empty and
// timeout is positive it sleeps once, until data arrives or the timeout
// expires, then tries again. It never sleeps twice.
func (q *messageQueue) outboundRemove(p []byte, timeout time.Duration) int {
	if len(p) == 0 {
		return 0
	}
	slept := false
	for {
		total := q.outbound.Remove(p)
		if total < len(p) && q.flags&mqOverflow != 0 {
			// the ring is empty now, so the held chunk fits
			q.flags &^= mqOverflow
			q.outboundRead()
			n := q.outbound.Remove(p[total:])
			total += n
			pkg.LogDebug(pkg.ComponentMessages, "drained held adapter data", "len", n)
		}
		if total == 0 && !slept && timeout > 0 {
			slept = true
			pkg.LogDebug(pkg.ComponentMessages, "waiting for data from adapter", "timeout", timeout)
			if q.g.sleepFor(q.g.outbound, timeout) {
				pkg.LogDebug(pkg.ComponentMessages, "timed out waiting for outbound message data")
			}
			continue
		}
		return total
	}
}

// shutdown fails every producer waiting for inbound space with err and
// wakes every consumer. Nothing drains the ring once the adapter is stopped
// or the client is gone.
func (q *messageQueue) shutdown(err error) {
	q.halt = err
	q.g.wakeup(q.g.inbound)
	q.g.wakeup(q.g.outbound)
}

// resume lets producers wait for space again.
func (q *messageQueue) resume() {
	q.halt = nil
}

// inboundClear discards queued host data.
func (q *messageQueue) inboundClear() {
	q.inbound.Clear()
}

// outboundClear discards received data and restarts a stalled adapter.
func (q *messageQueue) outboundClear() {
	q.outbound.Clear()
	if q.flags&mqOverflow != 0 {
		q.flags &^= mqOverflow
		q.regs.RingInboundDoorbell(InboundDoorbellDataReadOK)
	}
}

// handleDoorbell services the data doorbells read from the adapter.
func (q *messageQueue) handleDoorbell(db uint32) {
	if db&OutboundDoorbellDataWriteOK != 0 {
		q.outboundRead()
	}
	if db&OutboundDoorbellDataReadOK != 0 {
		q.inboundWrite()
	}
}
