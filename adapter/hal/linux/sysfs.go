package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ardnew/arcmsr/pkg"
)

// =============================================================================
// Discovery
// =============================================================================

// Find lists the supported adapters under a sysfs PCI device directory,
// ordered by address. An empty root means [SysfsPCIPath].
func Find(root string) ([]Device, error) {
	if root == "" {
		root = SysfsPCIPath
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, entry := range entries {
		dev, err := parsePCIDevice(filepath.Join(root, entry.Name()))
		if err != nil {
			pkg.LogDebug(pkg.ComponentHAL, "skipping pci function", "address", entry.Name(), "error", err)
			continue
		}
		if Supported(dev.VendorID, dev.DeviceID) {
			devices = append(devices, dev)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Address < devices[j].Address })
	return devices, nil
}

// lookup finds the adapter at addr, or the first one if addr is empty.
func lookup(root, addr string) (Device, error) {
	devices, err := Find(root)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if addr == "" || d.Address == addr {
			return d, nil
		}
	}
	if addr == "" {
		return Device{}, fmt.Errorf("%w: no supported adapter in %s", pkg.ErrNotSupported, root)
	}
	return Device{}, fmt.Errorf("%w: no supported adapter at %s", pkg.ErrNotSupported, addr)
}

// parsePCIDevice reads one PCI function directory.
func parsePCIDevice(path string) (Device, error) {
	dev := Device{Address: filepath.Base(path)}

	vendor, err := readSysfsHexUint16(filepath.Join(path, "vendor"))
	if err != nil {
		return dev, err
	}
	dev.VendorID = vendor

	device, err := readSysfsHexUint16(filepath.Join(path, "device"))
	if err != nil {
		return dev, err
	}
	dev.DeviceID = device

	if irq, err := readSysfsString(filepath.Join(path, "irq")); err == nil {
		dev.IRQ, _ = strconv.Atoi(irq)
	}
	if link, err := os.Readlink(filepath.Join(path, "driver")); err == nil {
		dev.Driver = filepath.Base(link)
	}
	dev.UIO = findUIO(path)
	if bars, err := parseResource(filepath.Join(path, "resource")); err == nil && len(bars) > 0 {
		dev.BAR0 = bars[0].start
	}
	return dev, nil
}

// findUIO returns the uioN node bound to a PCI function, if any.
func findUIO(path string) string {
	entries, err := os.ReadDir(filepath.Join(path, "uio"))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "uio") {
			return e.Name()
		}
	}
	return ""
}

// bar is one line of a sysfs resource file.
type bar struct {
	start, end, flags uint64
}

func (b bar) size() uint64 {
	if b.end < b.start {
		return 0
	}
	return b.end - b.start + 1
}

// parseResource reads the "start end flags" lines of a resource file.
func parseResource(path string) ([]bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []bar
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		f := strings.Fields(line)
		if len(f) != 3 {
			return nil, fmt.Errorf("%w: resource line %q", pkg.ErrBadFrame, line)
		}
		var b bar
		for i, dst := range []*uint64{&b.start, &b.end, &b.flags} {
			v, err := strconv.ParseUint(strings.TrimPrefix(f[i], "0x"), 16, 64)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
