package protocol

import (
	"encoding/binary"
	"net"
	"strconv"
)

// PINHash hashes the decimal rendering of a PIN with the 31-multiplier
// string hash. PINs of 999 and below count as unset and hash to 0.
func PINHash(pin uint32) uint32 {
	if pin <= 999 {
		return 0
	}
	var h uint32
	for _, c := range []byte(strconv.FormatUint(uint64(pin), 10)) {
		h = (h << 5) - h + uint32(c)
	}
	return h
}

// DeviceID renders a numeric id as the hex device id. Small ids are shifted
// above 0x100000 so every id has at least six digits.
func DeviceID(n uint32) string {
	if n <= 0x100000 {
		n += 0x100000
	}
	return strconv.FormatUint(uint64(n), 16)
}

// MACDeviceID derives the device id from the last four bytes of a hardware
// address, falling back to DeviceID(0) when none is usable.
func MACDeviceID(mac net.HardwareAddr) string {
	if len(mac) < 4 {
		return DeviceID(0)
	}
	return DeviceID(binary.LittleEndian.Uint32(mac[len(mac)-4:]))
}

// HostDeviceID picks the first non-loopback interface with a hardware address
func HostDeviceID() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return DeviceID(0)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) < 4 {
			continue
		}
		return MACDeviceID(iface.HardwareAddr)
	}
	return DeviceID(0)
}
