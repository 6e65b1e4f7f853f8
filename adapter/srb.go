package adapter

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// =============================================================================
// Command Descriptor (SRB) Layout
// =============================================================================

// SRB field offsets.
const (
	srbBus          = 0
	srbTarget       = 1
	srbLUN          = 2
	srbFunction     = 3
	srbCDBLength    = 4
	srbSGCount      = 5
	srbFlags        = 6
	srbContext      = 8
	srbCDB          = 16
	srbDeviceStatus = 32
	srbSense        = 33
	srbSGList       = 48
)

// SRB geometry.
const (
	CDBSize          = 16
	SenseSize        = 15
	SGEntrySize      = 8
	MaxSGEntries     = 38
	MaxSegmentLength = 0x00FFFFFF

	// SRBHeaderSize is the size of the descriptor before the S/G list.
	SRBHeaderSize = srbSGList

	// SRBMaxSize is the size of a descriptor with a full S/G list.
	SRBMaxSize = SRBHeaderSize + MaxSGEntries*SGEntrySize

	// SRBSmallFrame is the largest descriptor the adapter reads without
	// the 512-byte frame flag.
	SRBSmallFrame = 256

	// SRBAlign is the descriptor alignment implied by the queue encoding.
	SRBAlign = 1 << postShift

	// srbFunctionSCSI is the only function code the adapter implements.
	srbFunctionSCSI = 1
)

// SRB flag bits.
const (
	SRBFlagSGLBSize uint8 = 0x01 // Descriptor exceeds 256 bytes
	SRBFlagBIOS     uint8 = 0x02
	SRBFlagWrite    uint8 = 0x04 // Data out
	SRBFlagHeadQ    uint8 = 0x08
	SRBFlagOrderedQ uint8 = 0x10
)

// SGFlagMask covers the flag byte of an S/G length word.
const SGFlagMask uint32 = 0xFF000000

// Adapter-specific device status codes.
const (
	DevStatusCheckCondition uint8 = 0x02
	DevStatusSelectTimeout  uint8 = 0xF0
	DevStatusAborted        uint8 = 0xF1
	DevStatusInitFail       uint8 = 0xF2
)

// SRB is the host's view of a command descriptor.
type SRB struct {
	Bus          uint8
	Target       uint8
	LUN          uint8
	CDBLength    uint8
	Flags        uint8
	Context      uint32
	CDB          [CDBSize]byte
	DeviceStatus uint8
	Sense        [SenseSize]byte
	SG           []hal.Segment
}

// Large reports whether the descriptor needs the 512-byte frame.
func (s *SRB) Large() bool {
	return s.Flags&SRBFlagSGLBSize != 0
}

// BuildSG fills the S/G list from the physical segments of a data buffer,
// splitting segments longer than [MaxSegmentLength]. It sets the large
// frame flag once the list pushes the descriptor past 256 bytes.
func (s *SRB) BuildSG(segs []hal.Segment) error {
	s.SG = s.SG[:0]
	s.Flags &^= SRBFlagSGLBSize
	for _, seg := range segs {
		addr, remain := seg.Addr, seg.Length
		for remain > 0 {
			n := remain
			if n > MaxSegmentLength {
				n = MaxSegmentLength
			}
			if addr+uint64(n) > 1<<32 {
				return fmt.Errorf("%w: 0x%x+%d", pkg.ErrSegmentAddress, addr, n)
			}
			if len(s.SG) == MaxSGEntries {
				return fmt.Errorf("%w: need more than %d", pkg.ErrTooManySegments, MaxSGEntries)
			}
			s.SG = append(s.SG, hal.Segment{Addr: addr, Length: n})
			addr += uint64(n)
			remain -= n
		}
	}
	if SRBHeaderSize+len(s.SG)*SGEntrySize > SRBSmallFrame {
		s.Flags |= SRBFlagSGLBSize
	}
	return nil
}

// SGLength returns the sum of the S/G entry lengths.
func (s *SRB) SGLength() int {
	total := 0
	for _, seg := range s.SG {
		total += int(seg.Length)
	}
	return total
}

// MarshalTo writes the descriptor to buf, clearing the status and sense
// area. Returns the number of bytes written, or 0 if buf is too small.
func (s *SRB) MarshalTo(buf []byte) int {
	size := SRBHeaderSize + len(s.SG)*SGEntrySize
	if len(buf) < size {
		return 0
	}
	le := binary.LittleEndian
	buf[srbBus] = s.Bus
	buf[srbTarget] = s.Target
	buf[srbLUN] = s.LUN
	buf[srbFunction] = srbFunctionSCSI
	buf[srbCDBLength] = s.CDBLength
	buf[srbSGCount] = uint8(len(s.SG))
	buf[srbFlags] = s.Flags
	buf[srbFlags+1] = 0
	le.PutUint32(buf[srbContext:], s.Context)
	le.PutUint32(buf[srbContext+4:], 0)
	copy(buf[srbCDB:srbCDB+CDBSize], s.CDB[:])
	clear(buf[srbDeviceStatus:srbSGList])
	for i, seg := range s.SG {
		off := srbSGList + i*SGEntrySize
		le.PutUint32(buf[off:], seg.Length&^SGFlagMask)
		le.PutUint32(buf[off+4:], uint32(seg.Addr))
	}
	return size
}

// ParseSRB decodes a descriptor, including its S/G list.
// Returns false if data is too short.
func ParseSRB(data []byte, out *SRB) bool {
	if len(data) < SRBHeaderSize {
		return false
	}
	n := int(data[srbSGCount])
	if n > MaxSGEntries || len(data) < SRBHeaderSize+n*SGEntrySize {
		return false
	}
	le := binary.LittleEndian
	out.Bus = data[srbBus]
	out.Target = data[srbTarget]
	out.LUN = data[srbLUN]
	out.CDBLength = data[srbCDBLength]
	out.Flags = data[srbFlags]
	out.Context = le.Uint32(data[srbContext:])
	copy(out.CDB[:], data[srbCDB:srbCDB+CDBSize])
	out.DeviceStatus = data[srbDeviceStatus]
	copy(out.Sense[:], data[srbSense:srbSense+SenseSize])
	out.SG = out.SG[:0]
	for i := 0; i < n; i++ {
		off := srbSGList + i*SGEntrySize
		out.SG = append(out.SG, hal.Segment{
			Length: le.Uint32(data[off:]) &^ SGFlagMask,
			Addr:   uint64(le.Uint32(data[off+4:])),
		})
	}
	return true
}

// SRBStatus reads the device status and sense bytes the adapter wrote.
func SRBStatus(data []byte) (status uint8, sense [SenseSize]byte) {
	status = data[srbDeviceStatus]
	copy(sense[:], data[srbSense:srbSense+SenseSize])
	return status, sense
}

// SetSRBStatus writes a device status and sense bytes into a descriptor.
func SetSRBStatus(data []byte, status uint8, sense []byte) {
	data[srbDeviceStatus] = status
	n := copy(data[srbSense:srbSense+SenseSize], sense)
	clear(data[srbSense+n : srbSense+SenseSize])
}

// SRBAddress returns the target, LUN and context stored in a descriptor.
func SRBAddress(data []byte) (target, lun uint8, context uint32) {
	return data[srbTarget], data[srbLUN], binary.LittleEndian.Uint32(data[srbContext:])
}

// SlotSize returns the per-descriptor stride for an advertised request size.
// The stride is at least [SRBMaxSize] and is rounded up to [SRBAlign].
func SlotSize(requestSize uint32) uint32 {
	size := requestSize
	if size < SRBMaxSize {
		size = SRBMaxSize
	}
	return (size + SRBAlign - 1) &^ (SRBAlign - 1)
}
