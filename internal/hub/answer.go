package hub

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/ui"
)

// call carries the requesting client and its reply path through one dispatch
type call struct {
	client protocol.Client
	reply  Reply
	log    logrus.FieldLogger
}

func (h *Hub) answer(c *call, data []byte) {
	if c.client.From == protocol.ConnManual {
		if h.onManual != nil {
			h.onManual(data, false)
		}
		return
	}
	if c.reply != nil {
		c.reply(data)
	}
}

func (h *Hub) answerType(c *call, typ string) {
	h.answer(c, protocol.TypeFrame(h.opts.ID, typ))
}

func (h *Hub) answerErr(c *call, text string) {
	h.answer(c, protocol.ErrorFrame(h.opts.ID, text))
}

func (h *Hub) answerDisabled(c *call) {
	h.answerErr(c, protocol.ErrTextDisabled)
}

// chunked reports whether UI frames for from may be split. Message based
// transports need the whole frame in one piece.
func (h *Hub) chunked(from protocol.Conn) bool {
	if h.opts.BufferSize <= 0 {
		return false
	}
	switch from {
	case protocol.ConnStream, protocol.ConnBluetooth, protocol.ConnManual:
		return true
	}
	return false
}

const uiHead = "\n{\"controls\":["

// answerUI renders the panel for the requesting client
func (h *Hub) answerUI(c *call) {
	if h.build == nil {
		h.answerType(c, protocol.TypeOK)
		return
	}
	env := ui.Env{Client: c.client, Menu: &h.menu}

	var buf []byte
	var flush func([]byte)
	maxChunk := 0
	if h.chunked(c.client.From) {
		maxChunk = h.opts.BufferSize
		buf = make([]byte, 0, maxChunk+len(uiHead))
		flush = func(part []byte) {
			h.answer(c, part)
		}
	} else {
		buf = make([]byte, 0, ui.Count(h.build, env)+len(uiHead)+64)
	}

	buf = append(buf, uiHead...)
	buf = ui.Render(h.build, env, buf, maxChunk, flush)
	if n := len(buf); n > 0 && buf[n-1] == ',' {
		buf[n-1] = ']'
	} else {
		buf = append(buf, ']')
	}
	buf = append(buf, `,"id":`...)
	buf = protocol.AppendString(buf, h.opts.ID)
	buf = append(buf, `,"type":"ui"}`+"\n"...)
	h.answer(c, buf)
}

// ----- multicast -----

// send delivers data to the manual handler and to every transport with a
// live UI. Broadcast frames also go to broker transports without focus.
func (h *Hub) send(data []byte, broadcast bool) {
	if h.onManual != nil {
		h.onManual(data, broadcast)
	}
	for _, t := range h.transports {
		conn := t.Conn()
		if !h.FocusedOn(conn) && !(broadcast && conn == protocol.ConnMQTT) {
			continue
		}
		if err := t.Broadcast(data); err != nil {
			h.log.WithError(err).WithField("conn", conn).Warn("multicast failed")
		}
	}
}

// SendPush sends a push notification to every client, focused or not
func (h *Hub) SendPush(text string) {
	if !h.running.Load() {
		return
	}
	h.pushed.Store(true)
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypePush)
	e.Str("text", text)
	h.send(e.Bytes(), true)
}

// SendNotice pops up a short message in focused clients
func (h *Hub) SendNotice(text string, color ui.Color) {
	if !h.Focused() {
		return
	}
	h.pushed.Store(true)
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeNotice)
	e.Str("text", text)
	e.Uint("color", uint64(color.Hex()))
	h.send(e.Bytes(), false)
}

// SendAlert shows an error dialog in focused clients
func (h *Hub) SendAlert(text string) {
	if !h.Focused() {
		return
	}
	h.pushed.Store(true)
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypeAlert)
	e.Str("text", text)
	h.send(e.Bytes(), false)
}

// Print appends text to the client console
func (h *Hub) Print(text string, color ui.Color) {
	if !h.Focused() {
		return
	}
	h.pushed.Store(true)
	e := protocol.NewEnvelope(h.opts.ID, protocol.TypePrint)
	e.Str("text", text)
	if color != ui.Default {
		e.Uint("color", uint64(color.Hex()))
	}
	h.send(e.Bytes(), false)
}

// SendRaw multicasts a data frame for client side scripts
func (h *Hub) SendRaw(data string) {
	if !h.running.Load() {
		return
	}
	h.pushed.Store(true)
	h.send(dataFrame(h.opts.ID, data), false)
}

func dataFrame(id, data string) []byte {
	e := protocol.NewEnvelope(id, protocol.TypeData)
	e.Str("data", data)
	return e.Bytes()
}

func updateFrame(id string, names, values []string) []byte {
	e := protocol.NewEnvelope(id, protocol.TypeUpdate)
	e.Nested("updates", func(o *protocol.Object) {
		for i, n := range names {
			o.Str(n, values[i])
		}
	})
	return e.Bytes()
}

// SendUpdate pushes a new widget value to focused clients
func (h *Hub) SendUpdate(name, value string) {
	if !h.Focused() {
		return
	}
	h.pushed.Store(true)
	h.send(updateFrame(h.opts.ID, []string{name}, []string{value}), false)
}

// SendUpdateNames reads the current values of the comma separated widget
// names and pushes them in one update frame. Called from a callback, the
// frame goes out once the running dispatch is done.
func (h *Hub) SendUpdateNames(names string) {
	if !h.Focused() {
		return
	}
	h.enqueue(namesJob{update: true, names: names})
}

func (h *Hub) sendUpdateNames(names string) {
	if h.build == nil || !h.Focused() {
		return
	}
	var keys, values []string
	for _, n := range splitNames(names) {
		v, ok := ui.Read(h.build, ui.Env{Menu: &h.menu}, n)
		if !ok {
			continue
		}
		keys = append(keys, n)
		values = append(values, v)
	}
	if len(keys) == 0 {
		return
	}
	h.send(updateFrame(h.opts.ID, keys, values), false)
}

// SendGet publishes a value on the broker get topic
func (h *Hub) SendGet(name, value string) {
	if !h.running.Load() {
		return
	}
	for _, t := range h.transports {
		p, ok := t.(Publisher)
		if !ok {
			continue
		}
		if err := p.PublishGet(name, value); err != nil {
			h.log.WithError(err).WithField("name", name).Warn("get publish failed")
		}
	}
}

// SendGetNames reads the comma separated widgets and publishes each value on
// the get topic. Like SendUpdateNames it may be called from callbacks.
func (h *Hub) SendGetNames(names string) {
	if !h.running.Load() {
		return
	}
	h.enqueue(namesJob{names: names})
}

func (h *Hub) sendGetNames(names string) {
	if h.build == nil {
		return
	}
	for _, n := range splitNames(names) {
		if v, ok := ui.Read(h.build, ui.Env{Menu: &h.menu}, n); ok {
			h.SendGet(n, v)
		}
	}
}

// TurnOn publishes the online status
func (h *Hub) TurnOn() { h.power(true) }

// TurnOff publishes the offline status
func (h *Hub) TurnOff() { h.power(false) }

func (h *Hub) power(online bool) {
	if !h.running.Load() {
		return
	}
	for _, t := range h.transports {
		if p, ok := t.(Publisher); ok {
			if err := p.PublishStatus(online); err != nil {
				h.log.WithError(err).Warn("status publish failed")
			}
		}
	}
}

func splitNames(names string) []string {
	var out []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// namesJob is a SendUpdateNames or SendGetNames call waiting for the hub lock
type namesJob struct {
	update bool
	names  string
}

// enqueue queues j and runs it right away when the hub is idle. Otherwise the
// holder of h.mu runs it in unlock.
func (h *Hub) enqueue(j namesJob) {
	h.jobsMu.Lock()
	h.jobs = append(h.jobs, j)
	h.jobsMu.Unlock()
	if h.mu.TryLock() {
		h.unlock()
	}
}

// unlock releases h.mu after running the queued jobs. A job queued between
// the last run and the release is picked up by retaking the lock.
func (h *Hub) unlock() {
	for {
		h.runJobs()
		h.mu.Unlock()
		h.jobsMu.Lock()
		n := len(h.jobs)
		h.jobsMu.Unlock()
		if n == 0 || !h.mu.TryLock() {
			return
		}
	}
}

func (h *Hub) runJobs() {
	h.jobsMu.Lock()
	jobs := h.jobs
	h.jobs = nil
	h.jobsMu.Unlock()
	for _, j := range jobs {
		if j.update {
			h.sendUpdateNames(j.names)
		} else {
			h.sendGetNames(j.names)
		}
	}
}
