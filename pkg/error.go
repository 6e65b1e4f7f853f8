package pkg

import "errors"

// Adapter and protocol errors.
var (
	// ErrFirmwareTimeout indicates the adapter firmware never reported ready.
	ErrFirmwareTimeout = errors.New("timed out waiting for firmware")

	// ErrMessageTimeout indicates a message-unit command was not acknowledged.
	ErrMessageTimeout = errors.New("timed out waiting for message acknowledge")

	// ErrConfigSignature indicates the config reply carried an unknown signature.
	ErrConfigSignature = errors.New("bad adapter config signature")

	// ErrNoTag indicates every command slot is in flight.
	ErrNoTag = errors.New("no free command tag")

	// ErrTooManySegments indicates the data buffer needs more than the
	// maximum number of scatter/gather entries.
	ErrTooManySegments = errors.New("too many scatter/gather segments")

	// ErrSegmentAddress indicates a data segment lies outside 32-bit space.
	ErrSegmentAddress = errors.New("segment address not addressable")

	// ErrTransferTooLarge indicates a byte-stream send exceeds the buffer size.
	ErrTransferTooLarge = errors.New("transfer too large")

	// ErrExclusiveAccess indicates another client already holds the adapter.
	ErrExclusiveAccess = errors.New("adapter already opened by another client")

	// ErrNotOpen indicates no client session is open.
	ErrNotOpen = errors.New("client not open")

	// ErrAlreadyRunning indicates the adapter is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the adapter is not running.
	ErrNotRunning = errors.New("not running")

	// ErrNotInitialized indicates the adapter has not completed Init.
	ErrNotInitialized = errors.New("adapter not initialized")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrBadFrame indicates a malformed administrative protocol frame.
	ErrBadFrame = errors.New("malformed frame")

	// ErrChecksum indicates an administrative frame checksum mismatch.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("timeout")

	// ErrClosed indicates the adapter or HAL has been closed.
	ErrClosed = errors.New("closed")

	// ErrRejected indicates a task was refused before it reached the adapter.
	ErrRejected = errors.New("task rejected")

	// ErrDeliveryFailure indicates the adapter could not deliver a task.
	ErrDeliveryFailure = errors.New("service delivery failure")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")
)

// TaskStatus is the SCSI status reported to the issuer of a task.
type TaskStatus uint8

// Task status values. Unlisted values carry the device status byte as-is.
const (
	TaskStatusGood             TaskStatus = 0x00
	TaskStatusCheckCondition   TaskStatus = 0x02
	TaskStatusBusy             TaskStatus = 0x08
	TaskStatusTaskSetFull      TaskStatus = 0x28
	TaskStatusDeviceNotPresent TaskStatus = 0xFD
	TaskStatusDeliveryFailure  TaskStatus = 0xFE
	TaskStatusNoStatus         TaskStatus = 0xFF
)

// String returns a string representation of the task status.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusGood:
		return "good"
	case TaskStatusCheckCondition:
		return "check-condition"
	case TaskStatusBusy:
		return "busy"
	case TaskStatusTaskSetFull:
		return "task-set-full"
	case TaskStatusDeviceNotPresent:
		return "device-not-present"
	case TaskStatusDeliveryFailure:
		return "delivery-failure"
	case TaskStatusNoStatus:
		return "no-status"
	default:
		return "status-0x" + hex8(uint8(s))
	}
}

// ServiceResponse describes how a task left the driver.
type ServiceResponse int

// Service responses.
const (
	ServiceResponseTaskComplete     ServiceResponse = iota // Device returned a status
	ServiceResponseRequestInProcess                        // Task posted, completion pending
	ServiceResponseFunctionRejected                        // Task refused before posting
	ServiceResponseDeliveryFailure                         // Service delivery or target failure
	ServiceResponseTimeout                                 // Task abandoned after its timeout
)

// String returns a string representation of the service response.
func (r ServiceResponse) String() string {
	switch r {
	case ServiceResponseTaskComplete:
		return "task-complete"
	case ServiceResponseRequestInProcess:
		return "request-in-process"
	case ServiceResponseFunctionRejected:
		return "function-rejected"
	case ServiceResponseDeliveryFailure:
		return "delivery-failure"
	case ServiceResponseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error corresponding to a service response, or nil for
// responses that carry a device status.
func (r ServiceResponse) Error() error {
	switch r {
	case ServiceResponseTaskComplete, ServiceResponseRequestInProcess:
		return nil
	case ServiceResponseFunctionRejected:
		return ErrRejected
	case ServiceResponseTimeout:
		return ErrTimeout
	default:
		return ErrDeliveryFailure
	}
}

func hex8(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0x0F]})
}
