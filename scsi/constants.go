package scsi

// Operation codes (the subset the adapter firmware and tools use).
const (
	OpTestUnitReady       = 0x00 // Test if unit is ready
	OpRequestSense        = 0x03 // Request sense data
	OpRead6               = 0x08 // Read blocks (6-byte)
	OpWrite6              = 0x0A // Write blocks (6-byte)
	OpInquiry             = 0x12 // Get device information
	OpModeSense6          = 0x1A // Get mode parameters (6-byte)
	OpStartStopUnit       = 0x1B // Start/stop unit
	OpReadCapacity10      = 0x25 // Read capacity (10-byte)
	OpRead10              = 0x28 // Read blocks (10-byte)
	OpWrite10             = 0x2A // Write blocks (10-byte)
	OpVerify10            = 0x2F // Verify blocks (10-byte)
	OpSynchronizeCache10  = 0x35 // Synchronize cache (10-byte)
	OpReportLUNs          = 0xA0 // Report logical units
	OpRead12              = 0xA8 // Read blocks (12-byte)
	OpWrite12             = 0xAA // Write blocks (12-byte)
	OpRead16              = 0x88 // Read blocks (16-byte)
	OpWrite16             = 0x8A // Write blocks (16-byte)
	OpServiceActionIn16   = 0x9E // Service action in (16-byte)
	ServiceReadCapacity16 = 0x10 // READ CAPACITY (16) service action
)

// Status codes returned in the device status byte.
const (
	StatusGood                = 0x00
	StatusCheckCondition      = 0x02
	StatusConditionMet        = 0x04
	StatusBusy                = 0x08
	StatusReservationConflict = 0x18
	StatusTaskSetFull         = 0x28
	StatusACAActive           = 0x30
	StatusTaskAborted         = 0x40
)

// Sense keys.
const (
	SenseNoSense        = 0x00 // No error
	SenseRecoveredError = 0x01 // Recovered error
	SenseNotReady       = 0x02 // Device not ready
	SenseMediumError    = 0x03 // Medium error
	SenseHardwareError  = 0x04 // Hardware error
	SenseIllegalRequest = 0x05 // Illegal request
	SenseUnitAttention  = 0x06 // Unit attention
	SenseDataProtect    = 0x07 // Data protect
	SenseBlankCheck     = 0x08 // Blank check
	SenseAbortedCommand = 0x0B // Aborted command
)

// Additional sense codes.
const (
	ASCNoAdditionalInfo      = 0x00 // No additional sense information
	ASCInvalidCommand        = 0x20 // Invalid command operation code
	ASCLBAOutOfRange         = 0x21 // Logical block address out of range
	ASCInvalidFieldInCDB     = 0x24 // Invalid field in CDB
	ASCLUNNotSupported       = 0x25 // Logical unit not supported
	ASCWriteProtected        = 0x27 // Write protected
	ASCNotReadyToReadyChange = 0x28 // Not ready to ready change
	ASCMediumNotPresent      = 0x3A // Medium not present
)

// Peripheral device types.
const (
	DeviceTypeDisk      = 0x00 // Direct access block device
	DeviceTypeProcessor = 0x03 // Processor device
	DeviceTypeCDROM     = 0x05 // CD-ROM device
	DeviceTypeArray     = 0x0C // Storage array controller
	DeviceTypeEnclosure = 0x0D // Enclosure services device
	DeviceTypeUnknown   = 0x1F // Unknown or no device type
)

// INQUIRY constants.
const (
	InquiryStandardSize      = 36   // Standard INQUIRY data length
	InquiryVersionSPC3       = 0x05 // SPC-3 version
	InquiryResponseFormatSPC = 0x02 // SPC-compliant response format
)

// Fixed-format sense data constants.
const (
	SenseResponseCurrent = 0x70 // Current error, fixed format
	SenseFixedSize       = 18
)

// BlockSize is the logical block size the adapter reports for volumes.
const BlockSize = 512

// OpName returns a short mnemonic for an operation code.
func OpName(op uint8) string {
	switch op {
	case OpTestUnitReady:
		return "TEST UNIT READY"
	case OpRequestSense:
		return "REQUEST SENSE"
	case OpRead6:
		return "READ(6)"
	case OpWrite6:
		return "WRITE(6)"
	case OpInquiry:
		return "INQUIRY"
	case OpModeSense6:
		return "MODE SENSE(6)"
	case OpStartStopUnit:
		return "START STOP UNIT"
	case OpReadCapacity10:
		return "READ CAPACITY(10)"
	case OpRead10:
		return "READ(10)"
	case OpWrite10:
		return "WRITE(10)"
	case OpVerify10:
		return "VERIFY(10)"
	case OpSynchronizeCache10:
		return "SYNCHRONIZE CACHE(10)"
	case OpReportLUNs:
		return "REPORT LUNS"
	case OpRead12:
		return "READ(12)"
	case OpWrite12:
		return "WRITE(12)"
	case OpRead16:
		return "READ(16)"
	case OpWrite16:
		return "WRITE(16)"
	case OpServiceActionIn16:
		return "SERVICE ACTION IN(16)"
	default:
		return "UNKNOWN"
	}
}
