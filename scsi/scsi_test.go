package scsi

import (
	"testing"
)

func TestTransferBlocks(t *testing.T) {
	tests := []struct {
		name       string
		cdb        []byte
		wantLBA    uint64
		wantBlocks uint32
		wantOK     bool
	}{
		{"read6", []byte{OpRead6, 0x01, 0x02, 0x03, 8, 0}, 0x010203, 8, true},
		{"write6 zero means 256", []byte{OpWrite6, 0, 0, 0, 0, 0}, 0, 256, true},
		{"read10", Read10(0x12345678, 0x0100), 0x12345678, 0x100, true},
		{"write10", Write10(7, 1), 7, 1, true},
		{"read16", []byte{OpRead16, 0, 0, 0, 0, 0, 0, 0, 0, 9, 0, 0, 0, 4, 0, 0}, 9, 4, true},
		{"inquiry", Inquiry(36), 0, 0, false},
		{"short read10", []byte{OpRead10, 0, 0}, 0, 0, false},
		{"empty", nil, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lba, blocks, ok := TransferBlocks(tt.cdb)
			if ok != tt.wantOK {
				t.Fatalf("TransferBlocks() ok = %v, want %v", ok, tt.wantOK)
			}
			if lba != tt.wantLBA || blocks != tt.wantBlocks {
				t.Errorf("TransferBlocks() = %d, %d, want %d, %d", lba, blocks, tt.wantLBA, tt.wantBlocks)
			}
		})
	}
}

func TestTransferLength(t *testing.T) {
	n, ok := TransferLength(Read10(0, 3), BlockSize)
	if !ok || n != 3*BlockSize {
		t.Errorf("TransferLength() = %d, %v, want %d, true", n, ok, 3*BlockSize)
	}
	if _, ok := TransferLength(TestUnitReady(), BlockSize); ok {
		t.Error("TransferLength() ok for TEST UNIT READY")
	}
}

func TestIsWrite(t *testing.T) {
	for _, op := range []uint8{OpWrite6, OpWrite10, OpWrite12, OpWrite16} {
		if !IsWrite(op) {
			t.Errorf("IsWrite(0x%02x) = false", op)
		}
	}
	for _, op := range []uint8{OpRead10, OpInquiry, OpTestUnitReady} {
		if IsWrite(op) {
			t.Errorf("IsWrite(0x%02x) = true", op)
		}
	}
}

func TestInquiryRoundTrip(t *testing.T) {
	in := InquiryData{
		DeviceType: DeviceTypeDisk,
		Version:    InquiryVersionSPC3,
		Vendor:     "Areca",
		Product:    "ARC-1220-VOL#00",
		Revision:   "R001",
	}
	var buf [InquiryStandardSize]byte
	if n := in.MarshalTo(buf[:]); n != InquiryStandardSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, InquiryStandardSize)
	}
	if buf[8+5] != ' ' {
		t.Errorf("vendor not space padded: %q", buf[8:16])
	}

	var out InquiryData
	if !ParseInquiry(buf[:], &out) {
		t.Fatal("ParseInquiry() failed")
	}
	if out != in {
		t.Errorf("ParseInquiry() = %+v, want %+v", out, in)
	}

	if in.MarshalTo(buf[:10]) != 0 {
		t.Error("MarshalTo() into short buffer should return 0")
	}
}

func TestCapacity(t *testing.T) {
	c := Capacity{LastLBA: 2047, BlockLength: BlockSize}
	var buf [8]byte
	c.MarshalTo(buf[:])

	var out Capacity
	if !ParseCapacity10(buf[:], &out) {
		t.Fatal("ParseCapacity10() failed")
	}
	if out.Blocks() != 2048 {
		t.Errorf("Blocks() = %d, want 2048", out.Blocks())
	}
	if out.Bytes() != 2048*BlockSize {
		t.Errorf("Bytes() = %d, want %d", out.Bytes(), 2048*BlockSize)
	}
}

func TestSense(t *testing.T) {
	in := Sense{Key: SenseIllegalRequest, ASC: ASCLBAOutOfRange}

	// the adapter only carries 15 bytes of sense
	var buf [15]byte
	if n := in.MarshalTo(buf[:]); n != 15 {
		t.Fatalf("MarshalTo() = %d, want 15", n)
	}

	var out Sense
	if !ParseSense(buf[:], &out) {
		t.Fatal("ParseSense() failed")
	}
	if out != in {
		t.Errorf("ParseSense() = %+v, want %+v", out, in)
	}
	if got := out.String(); got != "illegal request (asc 0x21 ascq 0x00)" {
		t.Errorf("String() = %q", got)
	}

	buf[0] = 0x72
	if ParseSense(buf[:], &out) {
		t.Error("ParseSense() accepted descriptor format")
	}
}
