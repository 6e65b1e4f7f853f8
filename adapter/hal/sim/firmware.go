package sim

import (
	"encoding/binary"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/admin"
	"github.com/ardnew/arcmsr/pkg"
)

// IdentifyString is the firmware's answer to an IDENTIFY request.
const IdentifyString = "Areca RAID Subsystem "

// =============================================================================
// Messages
// =============================================================================

// message handles a write to inbound_msgaddr0. The simulated firmware
// completes every message at once.
func (h *HAL) message(code uint32) {
	h.stats.Messages = append(h.stats.Messages, code)
	pkg.LogDebug(pkg.ComponentHAL, "sim message", "code", adapter.MsgName(code))

	switch code {
	case adapter.MsgGetConfig:
		h.writeConfig()
	case adapter.MsgFlushCache:
		for target := range h.volumes {
			for _, v := range h.volumes[target] {
				if v != nil {
					v.Sync()
				}
			}
		}
	}
	if !h.opts.MuteMessages {
		h.raise(adapter.OutboundIntMessage0)
	}
}

// writeConfig places a config reply in the message wbuffer.
func (h *HAL) writeConfig() {
	cfg := adapter.FirmwareConfig{
		Signature:       adapter.ConfigSignature,
		RequestSize:     h.opts.RequestSize,
		QueueDepth:      h.opts.QueueDepth,
		InstalledMemory: h.opts.InstalledMemory,
		Channels:        h.opts.Channels,
		Vendor:          h.opts.Vendor,
		Model:           h.opts.Model,
		FirmwareVersion: h.opts.FirmwareVersion,
		DeviceMap:       h.deviceMap,
	}
	if h.opts.BadSignature {
		cfg.Signature = ^adapter.ConfigSignature
	}
	cfg.MarshalTo(h.regs[adapter.RegMessageWBuffer:])
}

// =============================================================================
// Message Channel
// =============================================================================

// doorbell handles a write to the inbound doorbell.
func (h *HAL) doorbell(bits uint32) {
	if bits&adapter.InboundDoorbellDataWriteOK != 0 && !h.opts.StallInbound {
		n := min(int(h.load(adapter.RegIoctlWBuffer)), adapter.IoctlDataSize)
		off := adapter.RegIoctlWBuffer + adapter.IoctlLengthSize
		chunk := h.regs[off : off+uint32(n)]
		h.stats.InboundMsgs++
		if h.opts.Echo {
			h.mgmtOut = append(h.mgmtOut, chunk...)
		} else {
			h.mgmtIn = append(h.mgmtIn, chunk...)
			h.serve()
		}
		// wbuffer consumed
		h.ring(adapter.OutboundDoorbellDataReadOK)
	}
	if bits&adapter.InboundDoorbellDataReadOK != 0 {
		h.stats.ReadOKs++
		h.rbufBusy = false
	}
	h.push()
}

// push moves the next reply chunk into the rbuffer once the host has
// acknowledged the previous one.
func (h *HAL) push() {
	if h.rbufBusy || len(h.mgmtOut) == 0 {
		return
	}
	n := min(len(h.mgmtOut), adapter.IoctlDataSize)
	h.store(adapter.RegIoctlRBuffer, uint32(n))
	copy(h.regs[adapter.RegIoctlRBuffer+adapter.IoctlLengthSize:], h.mgmtOut[:n])
	h.mgmtOut = h.mgmtOut[n:]
	h.rbufBusy = true
	h.ring(adapter.OutboundDoorbellDataWriteOK)
}

// ring sets outbound doorbell bits and raises the doorbell interrupt.
func (h *HAL) ring(bits uint32) {
	h.store(adapter.RegOutboundDoorbell, h.load(adapter.RegOutboundDoorbell)|bits)
	h.raise(adapter.OutboundIntDoorbell)
}

// serve answers every complete management frame received so far.
func (h *HAL) serve() {
	for {
		adv, body, err := admin.SplitFrame(h.mgmtIn, false)
		if adv == 0 && body == nil && err == nil {
			return
		}
		h.mgmtIn = h.mgmtIn[adv:]
		switch {
		case err != nil:
			h.mgmtOut = append(h.mgmtOut, admin.EncodeStatus(admin.StatusChecksumError)...)
		case body != nil:
			h.mgmtOut = append(h.mgmtOut, h.answer(body)...)
		}
	}
}

// answer builds the reply frame for one request body.
func (h *HAL) answer(body []byte) []byte {
	req, err := admin.ParseRequest(body)
	if err != nil {
		return admin.EncodeStatus(admin.StatusParameterError)
	}
	pkg.LogDebug(pkg.ComponentHAL, "sim management request", "command", req.Code)
	switch req.Code {
	case admin.CmdIdentify:
		frame, _ := admin.AppendFrame(nil, []byte(IdentifyString))
		return frame
	case admin.CmdGetInfoSystem:
		return h.systemInfo()
	case admin.CmdNoOperation, admin.CmdMuteBeeper, admin.CmdLogout:
		return admin.EncodeStatus(admin.StatusOK)
	case admin.CmdCheckPassword:
		if len(req.Data) > 0 && int(req.Data[0]) == len(req.Data)-1 {
			return admin.EncodeStatus(admin.StatusOK)
		}
		return admin.EncodeStatus(admin.StatusInvalidPassword)
	default:
		return admin.EncodeStatus(admin.StatusUnsupportedCommand)
	}
}

// systemInfo answers GET_INFO_S with the vendor, model and firmware
// strings in fixed-width fields.
func (h *HAL) systemInfo() []byte {
	info := make([]byte, 40+8+16+4)
	copy(info[0:40], h.opts.Vendor)
	copy(info[40:48], h.opts.Model)
	copy(info[48:64], h.opts.FirmwareVersion)
	binary.LittleEndian.PutUint32(info[64:], h.opts.InstalledMemory)
	frame, _ := admin.AppendFrame(nil, info)
	return frame
}

// =============================================================================
// Queue Ports
// =============================================================================

// post handles a descriptor posted to the inbound queue port.
func (h *HAL) post(word uint32) {
	h.stats.Posted++
	if word&adapter.PostFlagSGLBSize != 0 {
		h.stats.Large++
	}
	if h.opts.HoldReplies {
		h.held = append(h.held, word)
		return
	}
	h.execute(word)
}

func (h *HAL) pushReply(word uint32) {
	h.replies = append(h.replies, word)
	h.raise(adapter.OutboundIntPostQueue)
}

func (h *HAL) popReply() uint32 {
	if len(h.replies) == 0 {
		return adapter.QueueEmpty
	}
	w := h.replies[0]
	h.replies = h.replies[1:]
	return w
}
