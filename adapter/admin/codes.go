package admin

import "fmt"

// Command is a firmware management command code. Codes below 0x20 are
// system-level and skip password checking.
type Command uint8

// System commands.
const (
	CmdSetSerial       Command = 0x10
	CmdSetVendor       Command = 0x11
	CmdSetModel        Command = 0x12
	CmdIdentify        Command = 0x13
	CmdCheckPassword   Command = 0x14
	CmdLogout          Command = 0x15
	CmdHTTP            Command = 0x16
	CmdSetEthernetAddr Command = 0x17
	CmdSetLogo         Command = 0x18
	CmdPollEvent       Command = 0x19
	CmdGetEvent        Command = 0x1A
	CmdGetHWMonitor    Command = 0x1B
)

// Information commands.
const (
	CmdGetInfoRaidSet   Command = 0x20
	CmdGetInfoVolume    Command = 0x21
	CmdGetInfoPhysical  Command = 0x22
	CmdGetInfoSystem    Command = 0x23
	CmdClearEvent       Command = 0x24
	CmdMuteBeeper       Command = 0x30
	CmdBeeperSetting    Command = 0x31
	CmdSetPassword      Command = 0x32
	CmdHostInterface    Command = 0x33
	CmdRebuildPriority  Command = 0x34
	CmdMaxATAMode       Command = 0x35
	CmdResetController  Command = 0x36
	CmdComPortSetting   Command = 0x37
	CmdNoOperation      Command = 0x38
	CmdDHCPIP           Command = 0x39
	CmdCreatePassThru   Command = 0x40
	CmdModifyPassThru   Command = 0x41
	CmdDeletePassThru   Command = 0x42
	CmdIdentifyDevice   Command = 0x43
	CmdCreateRaidSet    Command = 0x50
	CmdDeleteRaidSet    Command = 0x51
	CmdExpandRaidSet    Command = 0x52
	CmdActivateRaidSet  Command = 0x53
	CmdCreateHotSpare   Command = 0x54
	CmdDeleteHotSpare   Command = 0x55
	CmdCreateVolume     Command = 0x60
	CmdModifyVolume     Command = 0x61
	CmdDeleteVolume     Command = 0x62
	CmdStartCheckVolume Command = 0x63
	CmdStopCheckVolume  Command = 0x64
)

var commandNames = map[Command]string{
	CmdSetSerial:        "set-serial",
	CmdSetVendor:        "set-vendor",
	CmdSetModel:         "set-model",
	CmdIdentify:         "identify",
	CmdCheckPassword:    "check-password",
	CmdLogout:           "logout",
	CmdHTTP:             "http",
	CmdSetEthernetAddr:  "set-ethernet-addr",
	CmdSetLogo:          "set-logo",
	CmdPollEvent:        "poll-event",
	CmdGetEvent:         "get-event",
	CmdGetHWMonitor:     "get-hw-monitor",
	CmdGetInfoRaidSet:   "get-info-raidset",
	CmdGetInfoVolume:    "get-info-volume",
	CmdGetInfoPhysical:  "get-info-physical",
	CmdGetInfoSystem:    "get-info-system",
	CmdClearEvent:       "clear-event",
	CmdMuteBeeper:       "mute-beeper",
	CmdBeeperSetting:    "beeper-setting",
	CmdSetPassword:      "set-password",
	CmdHostInterface:    "host-interface-mode",
	CmdRebuildPriority:  "rebuild-priority",
	CmdMaxATAMode:       "max-ata-mode",
	CmdResetController:  "reset-controller",
	CmdComPortSetting:   "com-port-setting",
	CmdNoOperation:      "no-operation",
	CmdDHCPIP:           "dhcp-ip",
	CmdCreatePassThru:   "create-pass-through",
	CmdModifyPassThru:   "modify-pass-through",
	CmdDeletePassThru:   "delete-pass-through",
	CmdIdentifyDevice:   "identify-device",
	CmdCreateRaidSet:    "create-raidset",
	CmdDeleteRaidSet:    "delete-raidset",
	CmdExpandRaidSet:    "expand-raidset",
	CmdActivateRaidSet:  "activate-raidset",
	CmdCreateHotSpare:   "create-hot-spare",
	CmdDeleteHotSpare:   "delete-hot-spare",
	CmdCreateVolume:     "create-volume",
	CmdModifyVolume:     "modify-volume",
	CmdDeleteVolume:     "delete-volume",
	CmdStartCheckVolume: "start-check-volume",
	CmdStopCheckVolume:  "stop-check-volume",
}

// String returns the command mnemonic.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command-0x%02x", uint8(c))
}

// ParseCommand resolves a mnemonic such as "identify" to its code.
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Status is a one-byte firmware reply.
type Status uint8

// Reply status codes.
const (
	StatusOK                 Status = 0x41
	StatusRaidSetNotNormal   Status = 0x42
	StatusVolumeSetNotNormal Status = 0x43
	StatusNoRaidSet          Status = 0x44
	StatusNoVolumeSet        Status = 0x45
	StatusNoPhysicalDrive    Status = 0x46
	StatusParameterError     Status = 0x47
	StatusUnsupportedCommand Status = 0x48
	StatusDiskConfigChanged  Status = 0x49
	StatusInvalidPassword    Status = 0x4A
	StatusNoDiskSpace        Status = 0x4B
	StatusChecksumError      Status = 0x4C
	StatusPasswordRequired   Status = 0x4D
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRaidSetNotNormal:
		return "raid set not normal"
	case StatusVolumeSetNotNormal:
		return "volume set not normal"
	case StatusNoRaidSet:
		return "no raid set"
	case StatusNoVolumeSet:
		return "no volume set"
	case StatusNoPhysicalDrive:
		return "no physical drive"
	case StatusParameterError:
		return "parameter error"
	case StatusUnsupportedCommand:
		return "unsupported command"
	case StatusDiskConfigChanged:
		return "disk config changed"
	case StatusInvalidPassword:
		return "invalid password"
	case StatusNoDiskSpace:
		return "no disk space"
	case StatusChecksumError:
		return "checksum error"
	case StatusPasswordRequired:
		return "password required"
	default:
		return fmt.Sprintf("status-0x%02x", uint8(s))
	}
}
