package hub

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// InfoSection is one group of the info answer
type InfoSection uint8

const (
	InfoVersion InfoSection = iota
	InfoNet
	InfoMemory
	InfoSystem
)

var infoSectionNames = [...]string{"version", "net", "memory", "system"}

func (s InfoSection) String() string {
	if int(s) < len(infoSectionNames) {
		return infoSectionNames[s]
	}
	return "section?"
}

// InfoBuilder collects the entries of one info section
type InfoBuilder struct {
	section InfoSection
	obj     *protocol.Object
}

// Group is the section being filled
func (b *InfoBuilder) Group() InfoSection {
	return b.section
}

// Add appends a text entry
func (b *InfoBuilder) Add(label, text string) {
	b.obj.Str(label, text)
}

// AddInt appends a numeric entry
func (b *InfoBuilder) AddInt(label string, v int64) {
	b.obj.Int(label, v)
}

// AddUsage appends a [used,total] pair, as the client draws it as a bar
func (b *InfoBuilder) AddUsage(label string, used, total uint64) {
	b.obj.Raw(label, []byte("["+strconv.FormatUint(used, 10)+","+strconv.FormatUint(total, 10)+"]"))
}

func (h *Hub) infoFrame() []byte {
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeInfo)
	e.Nested("info", func(o *protocol.Object) {
		for s := InfoVersion; s <= InfoSystem; s++ {
			o.Nested(s.String(), func(sec *protocol.Object) {
				b := &InfoBuilder{section: s, obj: sec}
				h.builtinInfo(b)
				if h.onInfo != nil {
					h.onInfo(b)
				}
			})
		}
	})
	return e.Bytes()
}

func (h *Hub) builtinInfo(b *InfoBuilder) {
	switch b.section {
	case InfoVersion:
		b.Add("Library", LibraryVersion)
		if h.opts.Version != "" {
			b.Add("Firmware", h.opts.Version)
		}
	case InfoNet:
		if name, err := os.Hostname(); err == nil {
			b.Add("Host", name)
		}
		ifaces, err := psnet.Interfaces()
		if err != nil {
			h.log.WithError(err).Debug("interface list unavailable")
			return
		}
		for _, iface := range ifaces {
			if isLoopback(iface.Flags) || len(iface.Addrs) == 0 {
				continue
			}
			addrs := make([]string, 0, len(iface.Addrs))
			for _, a := range iface.Addrs {
				addrs = append(addrs, a.Addr)
			}
			b.Add(iface.Name, strings.Join(addrs, " "))
			if iface.HardwareAddr != "" {
				b.Add(iface.Name+"_MAC", iface.HardwareAddr)
			}
		}
	case InfoMemory:
		if vm, err := mem.VirtualMemory(); err == nil {
			b.AddUsage("RAM", vm.Used, vm.Total)
		}
		if total, used, err := h.store.Usage(); err == nil {
			b.AddUsage("Flash", used, total)
		}
	case InfoSystem:
		b.AddInt("Uptime", int64(time.Since(h.start)/time.Second))
		platform := runtime.GOOS + "/" + runtime.GOARCH
		if hi, err := host.Info(); err == nil && hi.Platform != "" {
			platform = fmt.Sprintf("%s %s (%s)", hi.Platform, hi.PlatformVersion, hi.KernelArch)
		}
		b.Add("Platform", platform)
		if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
			b.AddInt("CPU_MHz", int64(cpus[0].Mhz))
		}
		b.Add("Go", runtime.Version())
	}
}

func isLoopback(flags []string) bool {
	for _, f := range flags {
		if f == "loopback" {
			return true
		}
	}
	return false
}
