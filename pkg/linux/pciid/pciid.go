package pciid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the PCI ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// Database caches vendor and device names from pci.ids.
type Database struct {
	mu      sync.RWMutex
	paths   []string
	loaded  bool
	vendors map[uint16]string
	devices map[uint32]string // vendor<<16 | device
}

// New returns a database that searches [DefaultPaths].
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths returns a database that searches paths in order.
func NewWithPaths(paths []string) *Database {
	return &Database{
		paths:   paths,
		vendors: make(map[uint16]string),
		devices: make(map[uint32]string),
	}
}

// Load parses the first database file found. Later calls do nothing.
// It reports whether a file was parsed.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0
	}
	db.loaded = true
	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		db.parse(f)
		f.Close()
		return true
	}
	return false
}

// Parse reads database text from r, adding to any names already loaded.
func (db *Database) Parse(r io.Reader) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	db.parse(r)
}

// parse handles vendor lines ("vvvv  name") and device lines
// ("\tdddd  name"). Subsystem lines and the class section are skipped.
func (db *Database) parse(r io.Reader) {
	sc := bufio.NewScanner(r)
	vendor, inVendor := uint16(0), false
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		switch {
		case strings.HasPrefix(line, "\t\t"):
			// subsystem
		case line[0] == '\t':
			if !inVendor {
				continue
			}
			if id, name, ok := splitEntry(line[1:]); ok {
				db.devices[uint32(vendor)<<16|uint32(id)] = name
			}
		default:
			id, name, ok := splitEntry(line)
			inVendor = ok
			if ok {
				vendor = id
				db.vendors[id] = name
			}
		}
	}
}

// splitEntry splits "xxxx  name" into its hex id and name.
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(s[5:]), true
}

// LookupVendor returns the vendor name, or "" if unknown.
func (db *Database) LookupVendor(vendor uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vendor]
}

// LookupDevice returns the device name, or "" if unknown.
func (db *Database) LookupDevice(vendor, device uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.devices[uint32(vendor)<<16|uint32(device)]
}

// Describe returns "vendor device" names, falling back to hex IDs.
func (db *Database) Describe(vendor, device uint16) string {
	v := db.LookupVendor(vendor)
	if v == "" {
		v = "0x" + strconv.FormatUint(uint64(vendor), 16)
	}
	d := db.LookupDevice(vendor, device)
	if d == "" {
		d = "0x" + strconv.FormatUint(uint64(device), 16)
	}
	return v + " " + d
}

// Len returns the number of vendors and devices known.
func (db *Database) Len() (vendors, devices int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.devices)
}
