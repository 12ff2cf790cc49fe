package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// Module is one optional feature bit
type Module uint32

const (
	ModInfo Module = 1 << iota
	ModFSBR
	ModFormat
	ModFetch
	ModUpload
	ModOTA
	ModOTAURL
	ModReboot
	ModSet
	ModRead
	ModDelete
	ModRename
	ModSerial
	ModBT
	ModWS
	ModMQTT
	ModHTTP
)

// ModFS groups every module that needs a filesystem
const ModFS = ModFSBR | ModFormat | ModFetch | ModUpload | ModOTA | ModOTAURL | ModDelete | ModRename

var moduleNames = map[string]Module{
	"info":    ModInfo,
	"fsbr":    ModFSBR,
	"format":  ModFormat,
	"fetch":   ModFetch,
	"upload":  ModUpload,
	"ota":     ModOTA,
	"ota_url": ModOTAURL,
	"reboot":  ModReboot,
	"set":     ModSet,
	"read":    ModRead,
	"delete":  ModDelete,
	"rename":  ModRename,
	"serial":  ModSerial,
	"bt":      ModBT,
	"ws":      ModWS,
	"mqtt":    ModMQTT,
	"http":    ModHTTP,
}

// ParseModules converts module names into a mask
func ParseModules(names []string) (Module, error) {
	var m Module
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		bit, ok := moduleNames[n]
		if !ok {
			return 0, fmt.Errorf("unknown module %q", n)
		}
		m |= bit
	}
	return m, nil
}

// Names lists the module names set in m, sorted
func (m Module) Names() []string {
	var out []string
	for name, bit := range moduleNames {
		if m&bit != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ModuleMask records disabled modules. The zero value has everything enabled,
// and the raw mask is what discover reports.
type ModuleMask struct {
	disabled Module
}

// Set enables modules
func (m *ModuleMask) Set(mods Module) {
	m.disabled &^= mods
}

// Unset disables modules
func (m *ModuleMask) Unset(mods Module) {
	m.disabled |= mods
}

// SetAll enables every module
func (m *ModuleMask) SetAll() {
	m.disabled = 0
}

// ClearAll disables every module
func (m *ModuleMask) ClearAll() {
	m.disabled = ^Module(0)
}

// Enabled reports whether every bit in mods is enabled
func (m ModuleMask) Enabled(mods Module) bool {
	return m.disabled&mods == 0
}

// Disabled returns the raw bitmask of disabled modules
func (m ModuleMask) Disabled() Module {
	return m.disabled
}

// ConnModule maps a transport to the module bit that gates it
func ConnModule(c Conn) Module {
	switch c {
	case ConnStream:
		return ModSerial
	case ConnBluetooth:
		return ModBT
	case ConnWebsocket:
		return ModWS
	case ConnHTTP:
		return ModHTTP
	case ConnMQTT:
		return ModMQTT
	}
	return 0
}

// CommandModule maps a verb to the module bit that gates it
func CommandModule(c Command) Module {
	switch c {
	case CmdInfo:
		return ModInfo
	case CmdFSBR:
		return ModFSBR
	case CmdFormat:
		return ModFormat
	case CmdReboot:
		return ModReboot
	case CmdSet:
		return ModSet
	case CmdRead:
		return ModRead
	case CmdDelete:
		return ModDelete
	case CmdRename:
		return ModRename
	case CmdFetch, CmdFetchChunk, CmdFetchStop, CmdHTTPFetch:
		return ModFetch
	case CmdUpload, CmdUploadChunk, CmdHTTPUpload:
		return ModUpload
	case CmdOTA, CmdOTAChunk, CmdHTTPOTA:
		return ModOTA
	case CmdOTAURL:
		return ModOTAURL
	}
	return 0
}
