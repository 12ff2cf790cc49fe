package hub

import (
	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

// DispatchURL handles PREFIX/ID/CLIENT/VERB/NAME=VALUE, splitting the value
// off at the first '='
func (h *Hub) DispatchURL(from protocol.Conn, url string, reply Reply) {
	path, value := protocol.SplitValue(url)
	h.Dispatch(from, path, value, reply)
}

// Dispatch handles one command path with a separate value. Answers for the
// requesting client go to reply. Commands that do not address this device
// are dropped without an answer.
func (h *Hub) Dispatch(from protocol.Conn, url, value string, reply Reply) {
	if !h.running.Load() || h.otaURL.Load() {
		return
	}
	h.mu.Lock()
	defer h.unlock()

	if !h.modules.Enabled(protocol.ConnModule(from)) {
		return
	}

	c := &call{reply: reply}
	if url == h.opts.Prefix {
		c.client = protocol.NewClient(from, value)
		h.answer(c, h.discoverFrame())
		h.emit(protocol.EventDiscoverAll, from)
		return
	}

	p := protocol.SplitPath(url)
	if p.Len < 2 || p.Prefix != h.opts.Prefix || p.Device != h.opts.ID {
		return
	}

	switch p.Len {
	case 2:
		c.client = protocol.NewClient(from, value)
		h.answer(c, h.discoverFrame())
		h.emit(protocol.EventDiscover, from)
		return
	case 3:
		h.emit(protocol.EventUnknown, from)
		return
	}

	cmd, ok := protocol.LookupCommand(p.Verb)
	if !ok {
		h.emit(protocol.EventUnknown, from)
		return
	}

	// broker hooks carry the widget name in the client slot
	hook := from == protocol.ConnMQTT && p.Len == 4 && h.build != nil &&
		(cmd == protocol.CmdRead || cmd == protocol.CmdSet)

	name := p.Name
	c.client = protocol.NewClient(from, p.Client)
	if hook {
		name = p.Client
	}
	c.log = h.log.WithFields(logrus.Fields{"conn": from, "client": c.client.ID, "cmd": cmd, "name": name})
	c.log.Debug("dispatch")

	if h.onRequest != nil && !h.onRequest(name, value, c.client, cmd) {
		h.answerErr(c, protocol.ErrTextForbidden)
		return
	}

	if hook {
		h.brokerHook(c, cmd, name, value)
		return
	}

	h.setFocus(from)

	if p.Len != cmd.PathLen() {
		h.answerDisabled(c)
		return
	}
	if mod := protocol.CommandModule(cmd); mod != 0 && !h.modules.Enabled(mod) {
		h.answerDisabled(c)
		h.emit(disabledEvent(cmd), from)
		return
	}

	switch cmd {
	case protocol.CmdFocus:
		h.answerUI(c)
		h.emit(protocol.EventFocus, from)
	case protocol.CmdPing:
		h.answerType(c, protocol.TypeOK)
		h.emit(protocol.EventPing, from)
	case protocol.CmdUnfocus:
		h.answerType(c, protocol.TypeOK)
		h.clearFocus(from)
		h.emit(protocol.EventUnfocus, from)
	case protocol.CmdInfo:
		h.answer(c, h.infoFrame())
		h.emit(protocol.EventInfo, from)
	case protocol.CmdFSBR:
		h.answer(c, h.fsbrFrame())
		h.emit(protocol.EventFSBR, from)
	case protocol.CmdFormat:
		h.format(c)
		h.emit(protocol.EventFormat, from)
	case protocol.CmdReboot:
		h.reboot = protocol.RebootButton
		h.answerType(c, protocol.TypeOK)
		h.emit(protocol.EventReboot, from)
	case protocol.CmdRead:
		// only reachable as a broker hook
		h.answerDisabled(c)

	case protocol.CmdData:
		h.data(c, name, value)
	case protocol.CmdSet:
		h.set(c, name, value)
	case protocol.CmdCLI:
		h.answerType(c, protocol.TypeOK)
		if h.onCLI != nil {
			h.onCLI(value)
		}
		h.emit(protocol.EventCLI, from)
	case protocol.CmdDelete:
		h.delete(c, name)
	case protocol.CmdRename:
		h.rename(c, name, value)
	case protocol.CmdFetch:
		h.fetchStart(c, name)
	case protocol.CmdFetchChunk:
		h.fetchChunk(c)
	case protocol.CmdFetchStop:
		h.fetchStop(c)
	case protocol.CmdUpload:
		h.uploadStart(c, name)
	case protocol.CmdUploadChunk:
		h.uploadChunk(c, name, value)
	case protocol.CmdOTA:
		h.otaStart(c, name)
	case protocol.CmdOTAChunk:
		h.otaChunk(c, name, value)
	case protocol.CmdOTAURL:
		h.otaURLStart(c, name, value)
	}
}

// disabledEvent is the event reported when cmd is refused by the module mask
func disabledEvent(cmd protocol.Command) protocol.Event {
	switch cmd {
	case protocol.CmdFetch, protocol.CmdFetchChunk, protocol.CmdFetchStop:
		return protocol.EventFetchError
	case protocol.CmdUpload, protocol.CmdUploadChunk:
		return protocol.EventUploadError
	case protocol.CmdOTA, protocol.CmdOTAChunk:
		return protocol.EventOTAError
	case protocol.CmdOTAURL:
		return protocol.EventOTAURL
	case protocol.CmdInfo:
		return protocol.EventInfo
	case protocol.CmdFSBR:
		return protocol.EventFSBR
	case protocol.CmdFormat:
		return protocol.EventFormat
	case protocol.CmdReboot:
		return protocol.EventReboot
	case protocol.CmdSet:
		return protocol.EventSet
	case protocol.CmdDelete:
		return protocol.EventDelete
	case protocol.CmdRename:
		return protocol.EventRename
	case protocol.CmdRead:
		return protocol.EventReadHook
	}
	return protocol.EventError
}

// brokerHook serves PREFIX/ID/NAME/read and PREFIX/ID/NAME/set without
// opening a UI session
func (h *Hub) brokerHook(c *call, cmd protocol.Command, name, value string) {
	from := c.client.From
	if cmd == protocol.CmdRead {
		if h.modules.Enabled(protocol.ModRead) {
			h.sendGetNames(name)
		}
		h.emit(protocol.EventReadHook, from)
		return
	}
	if h.modules.Enabled(protocol.ModSet) {
		ui.Write(h.build, ui.Env{Client: c.client, Menu: &h.menu}, name, value)
		if h.autoGet.Load() {
			h.SendGet(name, value)
		}
		if h.autoUpdate.Load() {
			h.SendUpdate(name, value)
		}
	}
	h.emit(protocol.EventSetHook, from)
}

func (h *Hub) data(c *call, name, value string) {
	h.pushed.Store(false)
	var out string
	if h.onData != nil {
		out = h.onData(c.client, name, value)
	}
	switch {
	case out != "":
		h.answer(c, dataFrame(h.opts.ID, out))
	case !h.pushed.Load():
		h.answerType(c, protocol.TypeOK)
	}
	h.emit(protocol.EventData, c.client.From)
}

// set writes value into the named widget and picks one answer: a fresh UI
// when the widget asked for a refresh, an update frame when auto update is
// on, nothing when the callbacks already pushed something, OK otherwise
func (h *Hub) set(c *call, name, value string) {
	from := c.client.From
	if h.build == nil {
		h.answerType(c, protocol.TypeOK)
		h.emit(protocol.EventSet, from)
		return
	}

	h.pushed.Store(false)
	matched, refresh := ui.Write(h.build, ui.Env{Client: c.client, Menu: &h.menu}, name, value)
	if !matched {
		c.log.Debug("set matched no widget")
	}
	if h.autoGet.Load() {
		h.SendGet(name, value)
	}

	switch {
	case refresh:
		h.answerUI(c)
	case h.autoUpdate.Load():
		frame := updateFrame(h.opts.ID, []string{name}, []string{value})
		h.answer(c, frame)
		if h.Focused() {
			h.send(frame, false)
		}
	case h.pushed.Load():
	default:
		h.answerType(c, protocol.TypeOK)
	}
	h.emit(protocol.EventSet, from)
}
