// Package scsi holds the SCSI vocabulary shared by the adapter core, the
// firmware simulator and the command-line tool: operation codes, status and
// sense codes, CDB builders and decoders for the response data the tools
// look at.
//
// Encoding follows the SCSI convention of big-endian multi-byte fields, in
// contrast to the little-endian adapter registers and descriptors.
package scsi
