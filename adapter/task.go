package adapter

import (
	"fmt"
	"time"

	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
	"github.com/ardnew/arcmsr/scsi"
)

// Direction is the data phase direction of a task.
type Direction uint8

// Data directions.
const (
	DirNone Direction = iota // No data phase
	DirIn                    // Target to initiator (read)
	DirOut                   // Initiator to target (write)
)

// String returns a human-readable direction.
func (d Direction) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	default:
		return "none"
	}
}

// taskState tracks a task through the completion state machine.
type taskState uint8

const (
	taskUnsubmitted taskState = iota
	taskPosted
	taskCompleted
	taskAbandoned
)

// Task is one storage command issued to a target/lun behind the adapter.
type Task struct {
	Target    int
	LUN       int
	Direction Direction
	CDB       []byte

	// Buffer, Offset and Length describe the data phase. Buffer may be nil
	// when Length is zero.
	Buffer hal.DMABuffer
	Offset int
	Length int

	// Timeout abandons the task if the adapter has not replied in time.
	// Zero waits forever.
	Timeout time.Duration

	// Done is called once, outside the adapter's serialization point, when
	// the task completes or is abandoned. It is not called for tasks that
	// Submit rejects.
	Done func(*Task)

	// Results, valid once Done runs.
	Status     pkg.TaskStatus
	Response   pkg.ServiceResponse
	Realized   int // Bytes transferred
	Sense      [SenseSize]byte
	SenseValid bool

	state   taskState
	tag     Tag
	context uint32
	timer   *time.Timer
}

// taskKey identifies a posted task from the fields the adapter echoes back.
type taskKey struct {
	target  uint8
	lun     uint8
	context uint32
}

func (t *Task) key() taskKey {
	return taskKey{target: uint8(t.Target), lun: uint8(t.LUN), context: t.context}
}

// Err summarizes the task outcome as an error, or nil when the device
// returned GOOD status.
func (t *Task) Err() error {
	if t.Response == pkg.ServiceResponseTaskComplete && t.Status == pkg.TaskStatusGood {
		return nil
	}
	return &TaskError{Status: t.Status, Response: t.Response, Sense: t.decodedSense()}
}

func (t *Task) decodedSense() *scsi.Sense {
	if !t.SenseValid {
		return nil
	}
	var s scsi.Sense
	if !scsi.ParseSense(t.Sense[:], &s) {
		return nil
	}
	return &s
}

func (t *Task) finish() {
	if t.Done != nil {
		t.Done(t)
	}
}

// TaskError describes a task that did not complete with GOOD status.
type TaskError struct {
	Status   pkg.TaskStatus
	Response pkg.ServiceResponse
	Sense    *scsi.Sense // nil unless the device returned sense data
}

// Error implements error.
func (e *TaskError) Error() string {
	if e.Sense != nil {
		return fmt.Sprintf("task %s: %s: %s", e.Response, e.Status, e.Sense)
	}
	return fmt.Sprintf("task %s: %s", e.Response, e.Status)
}

// Unwrap returns the sentinel for the service response, if any.
func (e *TaskError) Unwrap() error {
	return e.Response.Error()
}
