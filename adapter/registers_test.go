package adapter

import (
	"encoding/binary"
	"sync"
	"testing"
)

// fakeMMIO is a plain register file that records every store.
type fakeMMIO struct {
	mu     sync.Mutex
	mem    [MURegionSize]byte
	stores []regStore
}

type regStore struct {
	off uint32
	val uint32 // little-endian register value
}

func (m *fakeMMIO) Load32(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return binary.NativeEndian.Uint32(m.mem[off:])
}

func (m *fakeMMIO) Store32(off uint32, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	binary.NativeEndian.PutUint32(m.mem[off:], v)
	m.stores = append(m.stores, regStore{off: off, val: binary.LittleEndian.Uint32(m.mem[off:])})
}

// set writes a register value as the adapter would.
func (m *fakeMMIO) set(off, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	binary.LittleEndian.PutUint32(m.mem[off:], v)
}

func (m *fakeMMIO) count(off, bits uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.stores {
		if s.off == off && s.val&bits != 0 {
			n++
		}
	}
	return n
}

func TestRegistersByteOrder(t *testing.T) {
	m := &fakeMMIO{}
	r := NewRegisters(m)

	r.Write32(RegInboundMsgaddr0, 0x11223344)
	if got := m.mem[RegInboundMsgaddr0:][:4]; got[0] != 0x44 || got[3] != 0x11 {
		t.Errorf("register bytes = % x, want little-endian", got)
	}
	if got := r.Read32(RegInboundMsgaddr0); got != 0x11223344 {
		t.Errorf("Read32() = 0x%x", got)
	}
}

func TestRegistersBytes(t *testing.T) {
	m := &fakeMMIO{}
	r := NewRegisters(m)

	src := []byte{1, 2, 3, 4, 5, 6}
	r.WriteBytes(RegIoctlWBuffer, src)
	if got := m.mem[RegIoctlWBuffer : RegIoctlWBuffer+8]; string(got) != string([]byte{1, 2, 3, 4, 5, 6, 0, 0}) {
		t.Errorf("WriteBytes() wrote % x", got)
	}

	dst := make([]byte, 6)
	r.ReadBytes(RegIoctlWBuffer, dst)
	if string(dst) != string(src) {
		t.Errorf("ReadBytes() = % x", dst)
	}
}

func TestAckOutboundIntStatus(t *testing.T) {
	m := &fakeMMIO{}
	r := NewRegisters(m)

	if got := r.AckOutboundIntStatus(); got != 0 {
		t.Errorf("AckOutboundIntStatus() = 0x%x", got)
	}
	if len(m.stores) != 0 {
		t.Error("clear written with nothing pending")
	}

	m.set(RegOutboundIntStatus, OutboundIntPostQueue|OutboundIntMessage0)
	if got := r.AckOutboundIntStatus(); got != OutboundIntPostQueue|OutboundIntMessage0 {
		t.Errorf("AckOutboundIntStatus() = 0x%x", got)
	}
	if m.count(RegOutboundIntStatus, OutboundIntPostQueue) != 1 {
		t.Error("status not written back")
	}
}

func TestInterruptMask(t *testing.T) {
	m := &fakeMMIO{}
	r := NewRegisters(m)

	r.MaskInterrupts()
	if got := r.Read32(RegOutboundIntMask); got != OutboundIntAll {
		t.Fatalf("mask = 0x%x", got)
	}
	r.UnmaskInterrupts(outboundIntHandled)
	if got := r.Read32(RegOutboundIntMask); got != OutboundIntMessage1|OutboundIntPCI {
		t.Errorf("mask after unmask = 0x%x", got)
	}
}

func TestFirmwareReady(t *testing.T) {
	m := &fakeMMIO{}
	r := NewRegisters(m)
	if r.FirmwareReady() {
		t.Error("FirmwareReady() with flag clear")
	}
	m.set(RegOutboundMsgaddr1, OutboundMsg1FirmwareOK)
	if !r.FirmwareReady() {
		t.Error("FirmwareReady() with flag set")
	}
}

func TestMsgName(t *testing.T) {
	if got := MsgName(MsgGetConfig); got != "get-config" {
		t.Errorf("MsgName(GetConfig) = %q", got)
	}
	if got := MsgName(0x99); got != "unknown" {
		t.Errorf("MsgName(0x99) = %q", got)
	}
}
