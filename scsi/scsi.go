package scsi

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// =============================================================================
// CDB Decoding
// =============================================================================

// IsWrite reports whether op moves data from initiator to target.
func IsWrite(op uint8) bool {
	switch op {
	case OpWrite6, OpWrite10, OpWrite12, OpWrite16:
		return true
	}
	return false
}

// TransferBlocks returns the LBA and block count of a READ or WRITE CDB.
// ok is false for any other command or a short CDB.
func TransferBlocks(cdb []byte) (lba uint64, blocks uint32, ok bool) {
	if len(cdb) == 0 {
		return 0, 0, false
	}
	switch cdb[0] {
	case OpRead6, OpWrite6:
		if len(cdb) < 6 {
			return 0, 0, false
		}
		lba = uint64(cdb[1]&0x1F)<<16 | uint64(cdb[2])<<8 | uint64(cdb[3])
		blocks = uint32(cdb[4])
		if blocks == 0 {
			blocks = 256
		}
		return lba, blocks, true
	case OpRead10, OpWrite10:
		if len(cdb) < 10 {
			return 0, 0, false
		}
		return uint64(binary.BigEndian.Uint32(cdb[2:])), uint32(binary.BigEndian.Uint16(cdb[7:])), true
	case OpRead12, OpWrite12:
		if len(cdb) < 12 {
			return 0, 0, false
		}
		return uint64(binary.BigEndian.Uint32(cdb[2:])), binary.BigEndian.Uint32(cdb[6:]), true
	case OpRead16, OpWrite16:
		if len(cdb) < 16 {
			return 0, 0, false
		}
		return binary.BigEndian.Uint64(cdb[2:]), binary.BigEndian.Uint32(cdb[10:]), true
	}
	return 0, 0, false
}

// TransferLength returns the byte count a READ or WRITE CDB implies for
// the given block size.
func TransferLength(cdb []byte, blockSize int) (int, bool) {
	_, blocks, ok := TransferBlocks(cdb)
	if !ok {
		return 0, false
	}
	return int(blocks) * blockSize, true
}

// =============================================================================
// CDB Builders
// =============================================================================

// TestUnitReady returns a TEST UNIT READY CDB.
func TestUnitReady() []byte {
	return make([]byte, 6)
}

// Inquiry returns a standard INQUIRY CDB.
func Inquiry(allocLength uint16) []byte {
	cdb := make([]byte, 6)
	cdb[0] = OpInquiry
	binary.BigEndian.PutUint16(cdb[3:], allocLength)
	return cdb
}

// ReadCapacity10 returns a READ CAPACITY (10) CDB.
func ReadCapacity10() []byte {
	cdb := make([]byte, 10)
	cdb[0] = OpReadCapacity10
	return cdb
}

// Read10 returns a READ (10) CDB.
func Read10(lba uint32, blocks uint16) []byte {
	return rw10(OpRead10, lba, blocks)
}

// Write10 returns a WRITE (10) CDB.
func Write10(lba uint32, blocks uint16) []byte {
	return rw10(OpWrite10, lba, blocks)
}

func rw10(op uint8, lba uint32, blocks uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = op
	binary.BigEndian.PutUint32(cdb[2:], lba)
	binary.BigEndian.PutUint16(cdb[7:], blocks)
	return cdb
}

// SynchronizeCache10 returns a SYNCHRONIZE CACHE (10) CDB covering the unit.
func SynchronizeCache10() []byte {
	cdb := make([]byte, 10)
	cdb[0] = OpSynchronizeCache10
	return cdb
}

// =============================================================================
// Response Data
// =============================================================================

// InquiryData is standard INQUIRY data.
type InquiryData struct {
	DeviceType uint8  // Peripheral device type
	Qualifier  uint8  // Peripheral qualifier
	Removable  bool   // RMB bit
	Version    uint8  // SCSI version
	Vendor     string // T10 vendor identification
	Product    string // Product identification
	Revision   string // Product revision level
}

// ParseInquiry decodes standard INQUIRY data.
// Returns false if data is too short.
func ParseInquiry(data []byte, out *InquiryData) bool {
	if len(data) < InquiryStandardSize {
		return false
	}
	out.DeviceType = data[0] & 0x1F
	out.Qualifier = data[0] >> 5
	out.Removable = data[1]&0x80 != 0
	out.Version = data[2]
	out.Vendor = strings.TrimRight(string(data[8:16]), " \x00")
	out.Product = strings.TrimRight(string(data[16:32]), " \x00")
	out.Revision = strings.TrimRight(string(data[32:36]), " \x00")
	return true
}

// MarshalTo writes the INQUIRY data to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (d *InquiryData) MarshalTo(buf []byte) int {
	if len(buf) < InquiryStandardSize {
		return 0
	}
	clear(buf[:InquiryStandardSize])
	buf[0] = d.Qualifier<<5 | d.DeviceType&0x1F
	if d.Removable {
		buf[1] = 0x80
	}
	buf[2] = d.Version
	buf[3] = InquiryResponseFormatSPC
	buf[4] = InquiryStandardSize - 5
	padCopy(buf[8:16], d.Vendor)
	padCopy(buf[16:32], d.Product)
	padCopy(buf[32:36], d.Revision)
	return InquiryStandardSize
}

// Capacity is READ CAPACITY (10) data.
type Capacity struct {
	LastLBA     uint32 // Last logical block address
	BlockLength uint32 // Block length in bytes
}

// Blocks returns the number of addressable blocks.
func (c Capacity) Blocks() uint64 {
	return uint64(c.LastLBA) + 1
}

// Bytes returns the capacity in bytes.
func (c Capacity) Bytes() uint64 {
	return c.Blocks() * uint64(c.BlockLength)
}

// ParseCapacity10 decodes READ CAPACITY (10) data.
// Returns false if data is too short.
func ParseCapacity10(data []byte, out *Capacity) bool {
	if len(data) < 8 {
		return false
	}
	out.LastLBA = binary.BigEndian.Uint32(data[0:])
	out.BlockLength = binary.BigEndian.Uint32(data[4:])
	return true
}

// MarshalTo writes the capacity to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (c *Capacity) MarshalTo(buf []byte) int {
	if len(buf) < 8 {
		return 0
	}
	binary.BigEndian.PutUint32(buf[0:], c.LastLBA)
	binary.BigEndian.PutUint32(buf[4:], c.BlockLength)
	return 8
}

// =============================================================================
// Sense Data
// =============================================================================

// Sense is decoded fixed-format sense data.
type Sense struct {
	Key  uint8 // Sense key
	ASC  uint8 // Additional sense code
	ASCQ uint8 // Additional sense code qualifier
}

// String returns a compact description of the sense data.
func (s Sense) String() string {
	return fmt.Sprintf("%s (asc 0x%02x ascq 0x%02x)", SenseKeyName(s.Key), s.ASC, s.ASCQ)
}

// ParseSense decodes fixed-format sense data. The adapter returns a
// 15-byte sense area, which still covers key, ASC and ASCQ.
// Returns false if data is too short or not fixed format.
func ParseSense(data []byte, out *Sense) bool {
	if len(data) < 14 {
		return false
	}
	code := data[0] & 0x7F
	if code != 0x70 && code != 0x71 {
		return false
	}
	out.Key = data[2] & 0x0F
	out.ASC = data[12]
	out.ASCQ = data[13]
	return true
}

// MarshalTo writes fixed-format sense data to buf, truncated to len(buf).
// Returns the number of bytes written.
func (s *Sense) MarshalTo(buf []byte) int {
	var full [SenseFixedSize]byte
	full[0] = SenseResponseCurrent
	full[2] = s.Key & 0x0F
	full[7] = SenseFixedSize - 8
	full[12] = s.ASC
	full[13] = s.ASCQ
	return copy(buf, full[:])
}

// SenseKeyName returns the name of a sense key.
func SenseKeyName(key uint8) string {
	switch key {
	case SenseNoSense:
		return "no sense"
	case SenseRecoveredError:
		return "recovered error"
	case SenseNotReady:
		return "not ready"
	case SenseMediumError:
		return "medium error"
	case SenseHardwareError:
		return "hardware error"
	case SenseIllegalRequest:
		return "illegal request"
	case SenseUnitAttention:
		return "unit attention"
	case SenseDataProtect:
		return "data protect"
	case SenseBlankCheck:
		return "blank check"
	case SenseAbortedCommand:
		return "aborted command"
	default:
		return fmt.Sprintf("sense key 0x%x", key)
	}
}

// padCopy copies s into dst and pads the rest with spaces.
func padCopy(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}
