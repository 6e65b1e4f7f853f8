package linux

// =============================================================================
// System Paths
// =============================================================================

// SysfsPCIPath is the base path for PCI functions in sysfs.
const SysfsPCIPath = "/sys/bus/pci/devices"

// DevPath holds the UIO device nodes.
const DevPath = "/dev"

// PagemapPath exposes virtual to physical translations for this process.
const PagemapPath = "/proc/self/pagemap"

// =============================================================================
// Adapter Identity
// =============================================================================

// ArecaVendorID is the PCI vendor of every ArcMSR adapter.
const ArecaVendorID = 0x17D3

// SupportedDeviceIDs lists the adapters with the Intel IOP messaging unit.
var SupportedDeviceIDs = []uint16{
	0x1110, 0x1120, 0x1130, 0x1160, 0x1170,
	0x1210, 0x1220, 0x1230, 0x1260, 0x1270, 0x1280,
	0x1380, 0x1381, 0x1680, 0x1681,
}

// Supported reports whether vendor/device is an adapter this HAL drives.
func Supported(vendor, device uint16) bool {
	if vendor != ArecaVendorID {
		return false
	}
	for _, id := range SupportedDeviceIDs {
		if id == device {
			return true
		}
	}
	return false
}

// =============================================================================
// PCI Config Space
// =============================================================================

const (
	pciCommandOffset = 0x04

	pciCommandMemory      = 1 << 1
	pciCommandBusMaster   = 1 << 2
	pciCommandINTxDisable = 1 << 10
)

// =============================================================================
// Memory
// =============================================================================

const (
	// hugePageSize backs descriptor pools that span more than one page.
	hugePageSize = 2 << 20

	// pagemap entry layout
	pagemapPresent = 1 << 63
	pagemapPFNMask = 1<<55 - 1
	pagemapEntry   = 8
)

// MaxEpollEvents bounds the events handled per epoll wait.
const MaxEpollEvents = 4

// =============================================================================
// Discovery Types
// =============================================================================

// Device is one adapter found in sysfs.
type Device struct {
	Address  string // PCI address, e.g. "0000:03:00.0"
	VendorID uint16
	DeviceID uint16
	IRQ      int
	Driver   string // Bound kernel driver, "" if none
	UIO      string // UIO node name, e.g. "uio0", "" if not bound to UIO
	BAR0     uint64 // Physical base of the register window
}

// Options selects an adapter and the filesystem roots used to reach it.
// Empty paths take the system defaults.
type Options struct {
	Address   string // PCI address; "" picks the first supported adapter
	SysfsRoot string
	DevRoot   string
	Pagemap   string
}

func (o *Options) defaults() {
	if o.SysfsRoot == "" {
		o.SysfsRoot = SysfsPCIPath
	}
	if o.DevRoot == "" {
		o.DevRoot = DevPath
	}
	if o.Pagemap == "" {
		o.Pagemap = PagemapPath
	}
}
