package adapter

import (
	"fmt"
	"time"

	"github.com/ardnew/arcmsr/pkg"
)

// Default tunables.
const (
	DefaultScanInterval       = 5000 * time.Millisecond
	DefaultPollInterval       = 10 * time.Millisecond
	DefaultFirmwareReadyTries = 100
	DefaultMessageWaitTries   = 2000
)

// Config holds adapter tunables.
type Config struct {
	// ScanInterval is the period of the device-map poll.
	ScanInterval time.Duration

	// MessageBufferSize is the byte capacity of each byte-stream ring.
	MessageBufferSize int

	// MaxOutstanding caps the tag pool below the adapter's queue depth.
	MaxOutstanding int

	// FirmwareReadyTries and MessageWaitTries bound the init-time polls,
	// each try sleeping PollInterval.
	FirmwareReadyTries int
	MessageWaitTries   int
	PollInterval       time.Duration

	// CheckCDB cross-checks READ/WRITE lengths against the S/G list.
	CheckCDB bool
}

// DefaultConfig returns the tunables the adapter ships with.
func DefaultConfig() Config {
	return Config{
		ScanInterval:       DefaultScanInterval,
		MessageBufferSize:  MessageBufferSize,
		MaxOutstanding:     MaxOutstanding,
		FirmwareReadyTries: DefaultFirmwareReadyTries,
		MessageWaitTries:   DefaultMessageWaitTries,
		PollInterval:       DefaultPollInterval,
	}
}

// Validate checks the tunables for values the protocol cannot honour.
func (c Config) Validate() error {
	switch {
	case c.ScanInterval <= 0:
		return fmt.Errorf("%w: scan interval %v", pkg.ErrInvalidParameter, c.ScanInterval)
	case c.MessageBufferSize < IoctlDataSize:
		return fmt.Errorf("%w: message buffer %d smaller than staging buffer", pkg.ErrInvalidParameter, c.MessageBufferSize)
	case c.MaxOutstanding < 1 || c.MaxOutstanding > MaxOutstanding:
		return fmt.Errorf("%w: max outstanding %d not in [1,%d]", pkg.ErrInvalidParameter, c.MaxOutstanding, MaxOutstanding)
	case c.FirmwareReadyTries < 1 || c.MessageWaitTries < 1:
		return fmt.Errorf("%w: poll tries must be positive", pkg.ErrInvalidParameter)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval %v", pkg.ErrInvalidParameter, c.PollInterval)
	}
	return nil
}
