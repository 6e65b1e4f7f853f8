package adapter

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Config reply signatures.
const (
	ConfigSignature    uint32 = 0x87974060
	SetConfigSignature uint32 = 0x87974063
)

// Target and LUN limits of the adapter.
const (
	MaxTargets = 16
	MaxLUNs    = 8

	// InitiatorID is the SCSI ID the host presents.
	InitiatorID = 16
)

// MinFirmwareVersion is the oldest firmware known to behave.
const MinFirmwareVersion = "V1.37"

// Config reply field offsets within the message wbuffer.
const (
	cfgSignature        = 0
	cfgRequestSize      = 4
	cfgQueueDepth       = 8
	cfgInstalledMemory  = 12
	cfgChannels         = 16
	cfgVendor           = 20
	cfgModel            = 60
	cfgFirmwareVersion  = 68
	cfgDeviceMap        = 84
	cfgFirmwareVersion2 = 100

	// FirmwareConfigSize is the encoded size of a config reply.
	FirmwareConfigSize = 104
)

// DeviceMap holds one byte per target, one bit per LUN.
type DeviceMap [MaxTargets]uint8

// Present reports whether target/lun is set.
func (m *DeviceMap) Present(target, lun int) bool {
	return m[target]&(1<<lun) != 0
}

// FirmwareConfig is the adapter's reply to a get-config message.
type FirmwareConfig struct {
	Signature        uint32
	RequestSize      uint32 // Bytes per command descriptor
	QueueDepth       uint32 // Maximum outstanding commands
	InstalledMemory  uint32 // Adapter cache in MiB
	Channels         uint32
	Vendor           string
	Model            string
	FirmwareVersion  string
	DeviceMap        DeviceMap
	FirmwareVersion2 uint32
}

// ParseFirmwareConfig decodes a config reply. Returns false if data is too short.
func ParseFirmwareConfig(data []byte, out *FirmwareConfig) bool {
	if len(data) < FirmwareConfigSize {
		return false
	}
	le := binary.LittleEndian
	out.Signature = le.Uint32(data[cfgSignature:])
	out.RequestSize = le.Uint32(data[cfgRequestSize:])
	out.QueueDepth = le.Uint32(data[cfgQueueDepth:])
	out.InstalledMemory = le.Uint32(data[cfgInstalledMemory:])
	out.Channels = le.Uint32(data[cfgChannels:])
	out.Vendor = cString(data[cfgVendor:cfgModel])
	out.Model = cString(data[cfgModel:cfgFirmwareVersion])
	out.FirmwareVersion = cString(data[cfgFirmwareVersion:cfgDeviceMap])
	copy(out.DeviceMap[:], data[cfgDeviceMap:cfgFirmwareVersion2])
	out.FirmwareVersion2 = le.Uint32(data[cfgFirmwareVersion2:])
	return true
}

// MarshalTo writes the config reply to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (c *FirmwareConfig) MarshalTo(buf []byte) int {
	if len(buf) < FirmwareConfigSize {
		return 0
	}
	le := binary.LittleEndian
	le.PutUint32(buf[cfgSignature:], c.Signature)
	le.PutUint32(buf[cfgRequestSize:], c.RequestSize)
	le.PutUint32(buf[cfgQueueDepth:], c.QueueDepth)
	le.PutUint32(buf[cfgInstalledMemory:], c.InstalledMemory)
	le.PutUint32(buf[cfgChannels:], c.Channels)
	putCString(buf[cfgVendor:cfgModel], c.Vendor)
	putCString(buf[cfgModel:cfgFirmwareVersion], c.Model)
	putCString(buf[cfgFirmwareVersion:cfgDeviceMap], c.FirmwareVersion)
	copy(buf[cfgDeviceMap:cfgFirmwareVersion2], c.DeviceMap[:])
	le.PutUint32(buf[cfgFirmwareVersion2:], c.FirmwareVersion2)
	return FirmwareConfigSize
}

// FirmwareOutdated reports whether version sorts before [MinFirmwareVersion].
func FirmwareOutdated(version string) bool {
	return strings.Compare(version, MinFirmwareVersion) < 0
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), " ")
}

func putCString(dst []byte, s string) {
	n := copy(dst, s)
	clear(dst[n:])
}
