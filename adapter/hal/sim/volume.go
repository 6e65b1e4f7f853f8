package sim

import (
	"io"
	"os"
	"sync"

	"github.com/ardnew/arcmsr/scsi"
)

// Volume is a block device exported by the simulated adapter as one
// target/lun.
type Volume interface {
	// BlockCount returns the number of [scsi.BlockSize] blocks.
	BlockCount() uint64

	// ReadAt reads whole blocks starting at lba into buf.
	ReadAt(buf []byte, lba uint64) error

	// WriteAt writes whole blocks from buf starting at lba.
	WriteAt(buf []byte, lba uint64) error

	// Sync flushes cached writes.
	Sync() error

	// ReadOnly reports whether writes are refused.
	ReadOnly() bool
}

// MemoryVolume is a Volume held in memory.
type MemoryVolume struct {
	mu       sync.RWMutex
	data     []byte
	readOnly bool
	syncs    int
}

// NewMemoryVolume creates a zeroed volume of the given number of blocks.
func NewMemoryVolume(blocks uint64) *MemoryVolume {
	return &MemoryVolume{data: make([]byte, blocks*scsi.BlockSize)}
}

// BlockCount returns the number of blocks.
func (m *MemoryVolume) BlockCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.data)) / scsi.BlockSize
}

// ReadAt reads blocks from memory.
func (m *MemoryVolume) ReadAt(buf []byte, lba uint64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off, end, ok := blockRange(lba, len(buf), len(m.data))
	if !ok {
		return io.EOF
	}
	copy(buf, m.data[off:end])
	return nil
}

// WriteAt writes blocks to memory.
func (m *MemoryVolume) WriteAt(buf []byte, lba uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readOnly {
		return os.ErrPermission
	}
	off, end, ok := blockRange(lba, len(buf), len(m.data))
	if !ok {
		return io.EOF
	}
	copy(m.data[off:end], buf)
	return nil
}

// Sync counts the flush; memory needs nothing else.
func (m *MemoryVolume) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
	return nil
}

// Syncs returns how many times the volume was flushed.
func (m *MemoryVolume) Syncs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncs
}

// ReadOnly reports whether writes are refused.
func (m *MemoryVolume) ReadOnly() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readOnly
}

// SetReadOnly sets the write-protect state.
func (m *MemoryVolume) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
}

// Bytes returns the backing store.
func (m *MemoryVolume) Bytes() []byte {
	return m.data
}

// FileVolume is a Volume backed by a file or block device.
type FileVolume struct {
	mu       sync.Mutex
	file     *os.File
	blocks   uint64
	readOnly bool
}

// OpenFileVolume opens path as a volume. The file size is truncated down
// to a whole number of blocks.
func OpenFileVolume(path string, readOnly bool) (*FileVolume, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileVolume{
		file:     f,
		blocks:   uint64(fi.Size()) / scsi.BlockSize,
		readOnly: readOnly,
	}, nil
}

// BlockCount returns the number of blocks.
func (f *FileVolume) BlockCount() uint64 {
	return f.blocks
}

// ReadAt reads blocks from the file.
func (f *FileVolume) ReadAt(buf []byte, lba uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, _, ok := blockRange(lba, len(buf), int(f.blocks*scsi.BlockSize))
	if !ok {
		return io.EOF
	}
	_, err := f.file.ReadAt(buf, int64(off))
	return err
}

// WriteAt writes blocks to the file.
func (f *FileVolume) WriteAt(buf []byte, lba uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readOnly {
		return os.ErrPermission
	}
	off, _, ok := blockRange(lba, len(buf), int(f.blocks*scsi.BlockSize))
	if !ok {
		return io.EOF
	}
	_, err := f.file.WriteAt(buf, int64(off))
	return err
}

// Sync flushes the file.
func (f *FileVolume) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readOnly {
		return nil
	}
	return f.file.Sync()
}

// ReadOnly reports whether writes are refused.
func (f *FileVolume) ReadOnly() bool {
	return f.readOnly
}

// Close closes the backing file.
func (f *FileVolume) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

// blockRange converts a block address and byte count to a byte range,
// checking it against size.
func blockRange(lba uint64, n, size int) (off, end uint64, ok bool) {
	off = lba * scsi.BlockSize
	end = off + uint64(n)
	if n%scsi.BlockSize != 0 || end > uint64(size) || end < off {
		return 0, 0, false
	}
	return off, end, true
}
