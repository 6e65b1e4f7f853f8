package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/pkg"
	"github.com/ardnew/arcmsr/scsi"
)

// commandResult is the outcome of one simulated command.
type commandResult struct {
	status uint8
	sense  []byte
}

var resultGood = commandResult{status: scsi.StatusGood}

// checkCondition builds a CHECK CONDITION result with fixed-format sense.
func checkCondition(key, asc, ascq uint8) commandResult {
	s := scsi.Sense{Key: key, ASC: asc, ASCQ: ascq}
	var buf [adapter.SenseSize]byte
	s.MarshalTo(buf[:])
	return commandResult{status: adapter.DevStatusCheckCondition, sense: buf[:]}
}

// execute runs the descriptor named by a post word and queues the reply.
func (h *HAL) execute(word uint32) {
	phys := (word &^ (adapter.PostFlagSGLBSize | adapter.PostFlagIAmBIOS)) << 5
	large := word&adapter.PostFlagSGLBSize != 0

	frame := adapter.SRBSmallFrame
	if large {
		frame = adapter.SRBMaxSize
	}
	slot, ok := h.resolve(uint64(phys), adapter.SRBHeaderSize)
	if !ok {
		pkg.LogWarn(pkg.ComponentHAL, "sim descriptor address not mapped", "word", word)
		return
	}
	if full, ok := h.resolve(uint64(phys), frame); ok {
		slot = full
	}

	var srb adapter.SRB
	if !adapter.ParseSRB(slot, &srb) {
		pkg.LogWarn(pkg.ComponentHAL, "sim descriptor does not fit its frame", "word", word, "large", large)
		h.complete(slot, phys, commandResult{status: adapter.DevStatusInitFail})
		return
	}
	if srb.Large() != large {
		pkg.LogWarn(pkg.ComponentHAL, "sim descriptor frame flag mismatch", "srb", srb.Large(), "post", large)
	}
	h.complete(slot, phys, h.run(&srb))
}

// complete writes status and sense into the descriptor and queues a reply.
func (h *HAL) complete(slot []byte, phys uint32, r commandResult) {
	reply := phys >> 5
	if r.status != scsi.StatusGood {
		adapter.SetSRBStatus(slot, r.status, r.sense)
		reply |= adapter.ReplyFlagError
	}
	h.stats.Completed++
	h.pushReply(reply)
}

// run dispatches one command to the addressed volume.
func (h *HAL) run(srb *adapter.SRB) commandResult {
	if int(srb.Target) >= adapter.MaxTargets || int(srb.LUN) >= adapter.MaxLUNs {
		return commandResult{status: adapter.DevStatusSelectTimeout}
	}
	v := h.volumes[srb.Target][srb.LUN]
	if v == nil {
		return commandResult{status: adapter.DevStatusSelectTimeout}
	}
	cdb := srb.CDB[:srb.CDBLength]
	if len(cdb) == 0 {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCInvalidCommand, 0)
	}

	pkg.LogDebug(pkg.ComponentHAL, "sim command",
		"target", srb.Target, "lun", srb.LUN, "op", scsi.OpName(cdb[0]))

	switch cdb[0] {
	case scsi.OpTestUnitReady:
		return resultGood
	case scsi.OpInquiry:
		return h.inquiry(srb, cdb)
	case scsi.OpReadCapacity10:
		return h.readCapacity10(srb, v)
	case scsi.OpRead6, scsi.OpRead10, scsi.OpRead12, scsi.OpRead16:
		return h.read(srb, v, cdb)
	case scsi.OpWrite6, scsi.OpWrite10, scsi.OpWrite12, scsi.OpWrite16:
		return h.write(srb, v, cdb)
	case scsi.OpSynchronizeCache10:
		if err := v.Sync(); err != nil {
			return checkCondition(scsi.SenseMediumError, scsi.ASCNoAdditionalInfo, 0)
		}
		return resultGood
	default:
		pkg.LogDebug(pkg.ComponentHAL, "sim unsupported command", "op", cdb[0])
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCInvalidCommand, 0)
	}
}

// inquiry returns standard INQUIRY data naming the volume.
func (h *HAL) inquiry(srb *adapter.SRB, cdb []byte) commandResult {
	if len(cdb) < 6 {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCInvalidFieldInCDB, 0)
	}
	alloc := int(binary.BigEndian.Uint16(cdb[3:]))
	data := scsi.InquiryData{
		DeviceType: scsi.DeviceTypeDisk,
		Version:    scsi.InquiryVersionSPC3,
		Vendor:     "Areca",
		Product:    volumeName(srb.Target, srb.LUN),
		Revision:   "R001",
	}
	var buf [scsi.InquiryStandardSize]byte
	n := data.MarshalTo(buf[:])
	return h.dataIn(srb, buf[:min(n, alloc)])
}

func volumeName(target, lun uint8) string {
	return fmt.Sprintf("ARC-VOL#%03d", adapter.FlatTarget(int(target), int(lun)))
}

// readCapacity10 reports the last LBA and block length.
func (h *HAL) readCapacity10(srb *adapter.SRB, v Volume) commandResult {
	blocks := v.BlockCount()
	last := uint32(0xFFFFFFFF)
	if blocks <= 0xFFFFFFFF {
		last = uint32(blocks - 1)
	}
	c := scsi.Capacity{LastLBA: last, BlockLength: scsi.BlockSize}
	var buf [8]byte
	c.MarshalTo(buf[:])
	return h.dataIn(srb, buf[:])
}

// read copies blocks from the volume into the S/G list.
func (h *HAL) read(srb *adapter.SRB, v Volume, cdb []byte) commandResult {
	lba, blocks, ok := scsi.TransferBlocks(cdb)
	if !ok {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCInvalidFieldInCDB, 0)
	}
	if lba+uint64(blocks) > v.BlockCount() {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange, 0)
	}
	buf := make([]byte, int(blocks)*scsi.BlockSize)
	if err := v.ReadAt(buf, lba); err != nil {
		return checkCondition(scsi.SenseMediumError, scsi.ASCNoAdditionalInfo, 0)
	}
	return h.dataIn(srb, buf)
}

// write gathers the S/G list and stores it on the volume.
func (h *HAL) write(srb *adapter.SRB, v Volume, cdb []byte) commandResult {
	lba, blocks, ok := scsi.TransferBlocks(cdb)
	if !ok {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCInvalidFieldInCDB, 0)
	}
	if lba+uint64(blocks) > v.BlockCount() {
		return checkCondition(scsi.SenseIllegalRequest, scsi.ASCLBAOutOfRange, 0)
	}
	if v.ReadOnly() {
		return checkCondition(scsi.SenseDataProtect, scsi.ASCWriteProtected, 0)
	}
	buf := make([]byte, int(blocks)*scsi.BlockSize)
	if !h.gather(srb, buf) {
		return commandResult{status: adapter.DevStatusAborted}
	}
	if err := v.WriteAt(buf, lba); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return checkCondition(scsi.SenseDataProtect, scsi.ASCWriteProtected, 0)
		}
		return checkCondition(scsi.SenseMediumError, scsi.ASCNoAdditionalInfo, 0)
	}
	return resultGood
}

// dataIn scatters data into the descriptor's S/G list. A list shorter
// than data truncates the transfer.
func (h *HAL) dataIn(srb *adapter.SRB, data []byte) commandResult {
	for _, seg := range srb.SG {
		if len(data) == 0 {
			break
		}
		n := min(int(seg.Length), len(data))
		dst, ok := h.resolve(seg.Addr, n)
		if !ok {
			pkg.LogWarn(pkg.ComponentHAL, "sim s/g address not mapped", "addr", seg.Addr)
			return commandResult{status: adapter.DevStatusAborted}
		}
		copy(dst, data[:n])
		data = data[n:]
	}
	return resultGood
}

// gather fills buf from the descriptor's S/G list.
func (h *HAL) gather(srb *adapter.SRB, buf []byte) bool {
	for _, seg := range srb.SG {
		if len(buf) == 0 {
			break
		}
		n := min(int(seg.Length), len(buf))
		src, ok := h.resolve(seg.Addr, n)
		if !ok {
			pkg.LogWarn(pkg.ComponentHAL, "sim s/g address not mapped", "addr", seg.Addr)
			return false
		}
		copy(buf, src)
		buf = buf[n:]
	}
	return len(buf) == 0
}
