//go:build linux

package linux

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/pkg"
)

func TestBar0(t *testing.T) {
	m := make(bar0, adapter.MURegionSize)
	regs := adapter.NewRegisters(m)

	regs.Write32(adapter.RegInboundDoorbell, 0x01020304)
	if got := binary.LittleEndian.Uint32(m[adapter.RegInboundDoorbell:]); got != 0x01020304 {
		t.Errorf("register bytes = 0x%08x", got)
	}
	binary.LittleEndian.PutUint32(m[adapter.RegOutboundMsgaddr1:], adapter.OutboundMsg1FirmwareOK)
	if !regs.FirmwareReady() {
		t.Error("FirmwareReady() = false")
	}
}

func TestEnableDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	cfg := make([]byte, 64)
	binary.LittleEndian.PutUint16(cfg[pciCommandOffset:], pciCommandINTxDisable)
	if err := os.WriteFile(path, cfg, 0o644); err != nil {
		t.Fatal(err)
	}
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)

	if err := enableDevice(fd); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	cmd := binary.LittleEndian.Uint16(data[pciCommandOffset:])
	want := uint16(pciCommandINTxDisable | pciCommandMemory | pciCommandBusMaster)
	if cmd != want {
		t.Errorf("command = 0x%04x, want 0x%04x", cmd, want)
	}
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	fakeFunction(t, root, "0000:03:00.0", "0x17d3", "0x1220", false)

	_, err := Open(Options{SysfsRoot: root})
	if !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("Open(no uio) error = %v", err)
	}

	fakeFunction(t, root, "0000:05:00.0", "0x17d3", "0x1680", true)
	h, err := Open(Options{SysfsRoot: root, Address: "0000:05:00.0"})
	if err != nil {
		t.Fatal(err)
	}
	info := h.Info()
	if info.DeviceID != 0x1680 || info.IRQ != 42 {
		t.Errorf("Info() = %+v", info)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() before Init = %v", err)
	}
}
