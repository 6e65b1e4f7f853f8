package adapter

import (
	"encoding/binary"

	"github.com/ardnew/arcmsr/adapter/hal"
)

// =============================================================================
// Messaging Unit Layout
// =============================================================================

// Register offsets within the messaging unit.
const (
	RegInboundMsgaddr0   uint32 = 0x10
	RegInboundMsgaddr1   uint32 = 0x14
	RegOutboundMsgaddr0  uint32 = 0x18
	RegOutboundMsgaddr1  uint32 = 0x1C
	RegInboundDoorbell   uint32 = 0x20
	RegInboundIntStatus  uint32 = 0x24
	RegInboundIntMask    uint32 = 0x28
	RegOutboundDoorbell  uint32 = 0x2C
	RegOutboundIntStatus uint32 = 0x30
	RegOutboundIntMask   uint32 = 0x34
	RegInboundQueuePort  uint32 = 0x40
	RegOutboundQueuePort uint32 = 0x44

	RegMessageRBuffer uint32 = 0x800 // 128 words
	RegMessageWBuffer uint32 = 0xA00 // 256 words, config reply
	RegIoctlWBuffer   uint32 = 0xE00 // host to adapter staging buffer
	RegIoctlRBuffer   uint32 = 0xF00 // adapter to host staging buffer

	// MURegionSize is the size of the messaging unit window.
	MURegionSize = 0x1000
)

// Inbound message codes written to inbound_msgaddr0.
const (
	MsgNOP           uint32 = 0x00
	MsgGetConfig     uint32 = 0x01
	MsgSetConfig     uint32 = 0x02
	MsgAbortCmd      uint32 = 0x03
	MsgStopBGRB      uint32 = 0x04
	MsgFlushCache    uint32 = 0x05
	MsgStartBGRB     uint32 = 0x06
	MsgChk331Pending uint32 = 0x07
	MsgSyncTimer     uint32 = 0x08
)

// MsgName returns a short name for an inbound message code.
func MsgName(code uint32) string {
	switch code {
	case MsgNOP:
		return "nop"
	case MsgGetConfig:
		return "get-config"
	case MsgSetConfig:
		return "set-config"
	case MsgAbortCmd:
		return "abort-cmd"
	case MsgStopBGRB:
		return "stop-bgrb"
	case MsgFlushCache:
		return "flush-cache"
	case MsgStartBGRB:
		return "start-bgrb"
	case MsgChk331Pending:
		return "chk331-pending"
	case MsgSyncTimer:
		return "sync-timer"
	default:
		return "unknown"
	}
}

// Outbound message register 1 bits.
const OutboundMsg1FirmwareOK uint32 = 0x80000000

// Inbound doorbell bits (host to adapter).
const (
	InboundDoorbellDataWriteOK uint32 = 0x01 // Host wrote the ioctl wbuffer
	InboundDoorbellDataReadOK  uint32 = 0x02 // Host consumed the ioctl rbuffer
)

// Outbound doorbell bits (adapter to host).
const (
	OutboundDoorbellDataWriteOK uint32 = 0x01 // Adapter wrote the ioctl rbuffer
	OutboundDoorbellDataReadOK  uint32 = 0x02 // Adapter consumed the ioctl wbuffer
)

// Outbound interrupt status and mask bits.
const (
	OutboundIntMessage0  uint32 = 0x01
	OutboundIntMessage1  uint32 = 0x02
	OutboundIntDoorbell  uint32 = 0x04
	OutboundIntPostQueue uint32 = 0x08
	OutboundIntPCI       uint32 = 0x10

	OutboundIntAll uint32 = 0x1F

	// outboundIntHandled is the set unmasked while the adapter is running.
	outboundIntHandled = OutboundIntPostQueue | OutboundIntDoorbell | OutboundIntMessage0
)

// QueueEmpty is read from the outbound queue port when no reply is pending.
const QueueEmpty uint32 = 0xFFFFFFFF

// Queue port post and reply flags.
const (
	PostFlagSGLBSize uint32 = 0x80000000 // Descriptor is 512 bytes
	PostFlagIAmBIOS  uint32 = 0x40000000

	ReplyFlagIAmBIOS uint32 = 0x40000000
	ReplyFlagError   uint32 = 0x10000000
	ReplyFlagMask    uint32 = 0xF8000000

	// postShift converts between descriptor addresses and queue words.
	postShift = 5
)

// =============================================================================
// Staging Buffers
// =============================================================================

// Ioctl staging buffer geometry: a 4-byte length followed by payload.
const (
	IoctlLengthSize = 4
	IoctlDataSize   = 124
	IoctlBufferSize = IoctlLengthSize + IoctlDataSize
)

// =============================================================================
// Register Access
// =============================================================================

// Registers is a typed view over the messaging unit. Every field is
// little-endian on the wire; accessors return host-order values.
type Registers struct {
	mmio hal.MMIO
}

// NewRegisters wraps a register window.
func NewRegisters(mmio hal.MMIO) *Registers {
	return &Registers{mmio: mmio}
}

// Read32 reads the little-endian register at off.
func (r *Registers) Read32(off uint32) uint32 {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], r.mmio.Load32(off))
	return binary.LittleEndian.Uint32(b[:])
}

// Write32 writes v to the little-endian register at off.
func (r *Registers) Write32(off uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	r.mmio.Store32(off, binary.NativeEndian.Uint32(b[:]))
}

// ReadBytes copies len(dst) bytes starting at off, one word at a time.
// off must be word aligned.
func (r *Registers) ReadBytes(off uint32, dst []byte) {
	var b [4]byte
	for i := 0; i < len(dst); i += 4 {
		binary.NativeEndian.PutUint32(b[:], r.mmio.Load32(off+uint32(i)))
		copy(dst[i:], b[:])
	}
}

// WriteBytes copies src into the window starting at off, one word at a time.
// A trailing partial word is zero padded. off must be word aligned.
func (r *Registers) WriteBytes(off uint32, src []byte) {
	var b [4]byte
	for i := 0; i < len(src); i += 4 {
		b = [4]byte{}
		copy(b[:], src[i:])
		r.mmio.Store32(off+uint32(i), binary.NativeEndian.Uint32(b[:]))
	}
}

// SendMessage writes an inbound message code.
func (r *Registers) SendMessage(code uint32) {
	r.Write32(RegInboundMsgaddr0, code)
}

// FirmwareReady reports whether firmware has signalled it is running.
func (r *Registers) FirmwareReady() bool {
	return r.Read32(RegOutboundMsgaddr1)&OutboundMsg1FirmwareOK != 0
}

// AckOutboundIntStatus reads the outbound interrupt status and writes the
// set bits back to clear them. It returns the bits that were set.
func (r *Registers) AckOutboundIntStatus() uint32 {
	status := r.Read32(RegOutboundIntStatus)
	if status != 0 {
		r.Write32(RegOutboundIntStatus, status)
	}
	return status
}

// AckOutboundDoorbell reads and clears the outbound doorbell.
func (r *Registers) AckOutboundDoorbell() uint32 {
	db := r.Read32(RegOutboundDoorbell)
	if db != 0 {
		r.Write32(RegOutboundDoorbell, db)
	}
	return db
}

// RingInboundDoorbell signals the adapter.
func (r *Registers) RingInboundDoorbell(bits uint32) {
	r.Write32(RegInboundDoorbell, bits)
}

// MaskInterrupts masks every outbound interrupt source.
func (r *Registers) MaskInterrupts() {
	r.Write32(RegOutboundIntMask, OutboundIntAll)
}

// UnmaskInterrupts clears the mask bits for the given sources.
func (r *Registers) UnmaskInterrupts(bits uint32) {
	mask := r.Read32(RegOutboundIntMask)
	r.Write32(RegOutboundIntMask, mask&^bits)
}

// PostSRB writes a descriptor post word to the inbound queue port.
func (r *Registers) PostSRB(word uint32) {
	r.Write32(RegInboundQueuePort, word)
}

// PopReply reads one word from the outbound queue port.
// It returns [QueueEmpty] when no reply is pending.
func (r *Registers) PopReply() uint32 {
	return r.Read32(RegOutboundQueuePort)
}

// PostWord encodes a descriptor physical address for the inbound queue port.
func PostWord(phys uint32, large bool) uint32 {
	w := phys >> postShift
	if large {
		w |= PostFlagSGLBSize
	}
	return w
}

// DecodeReply splits an outbound queue word into its flag bits and the
// descriptor physical address.
func DecodeReply(word uint32) (flags uint32, phys uint32) {
	return word & ReplyFlagMask, word << postShift
}
