// Package pciid looks up PCI vendor and device names in the pci.ids
// database shipped with most Linux distributions.
//
// # Usage
//
//	db := pciid.New()
//	db.Load()
//	name := db.LookupDevice(0x17d3, 0x1680)
//
// Lookups on a database that failed to load return empty strings, so
// callers can fall back to printing the numeric ID.
//
// # Database Locations
//
//   - /usr/share/hwdata/pci.ids
//   - /usr/share/misc/pci.ids
//   - /usr/share/pci.ids
//
// All methods are safe for concurrent use.
package pciid
