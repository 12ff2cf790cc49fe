package protocol

import "strings"

// Conn identifies the transport a message arrived on
type Conn uint8

const (
	ConnStream Conn = iota
	ConnBluetooth
	ConnWebsocket
	ConnHTTP
	ConnMQTT
	ConnManual
	ConnSystem
)

// ConnCount is the number of transports that own a focus slot.
// ConnSystem is used for internally generated events only.
const ConnCount = int(ConnSystem)

var connNames = [...]string{"stream", "bluetooth", "websocket", "http", "mqtt", "manual", "system"}

func (c Conn) String() string {
	if int(c) < len(connNames) {
		return connNames[c]
	}
	return "unknown"
}

// MaxClientID is the longest client id kept from a command path
const MaxClientID = 8

// Client identifies the peer that owns a multi-step exchange.
// Two clients are the same peer when both transport and id match.
type Client struct {
	From Conn
	ID   string
}

// NewClient builds a client identity, truncating the id to MaxClientID
func NewClient(from Conn, id string) Client {
	if len(id) > MaxClientID {
		id = id[:MaxClientID]
	}
	return Client{From: from, ID: id}
}

func (c Client) String() string {
	return c.From.String() + "/" + c.ID
}

// Command is a protocol verb
type Command uint16

const (
	CmdFocus Command = iota
	CmdPing
	CmdUnfocus
	CmdInfo
	CmdFSBR
	CmdFormat
	CmdReboot
	CmdData
	CmdSet
	CmdCLI
	CmdDelete
	CmdRename
	CmdFetch
	CmdFetchChunk
	CmdFetchStop
	CmdUpload
	CmdUploadChunk
	CmdOTA
	CmdOTAChunk
	CmdOTAURL
	CmdRead
)

// HTTP endpoints that bypass the path parser report these to the request hook
const (
	CmdHTTPFetch Command = 0xF000 + iota
	CmdHTTPUpload
	CmdHTTPOTA
)

// CmdUnknown is returned for verbs missing from the table
const CmdUnknown Command = 0xFFFF

var commandNames = [...]string{
	CmdFocus:       "focus",
	CmdPing:        "ping",
	CmdUnfocus:     "unfocus",
	CmdInfo:        "info",
	CmdFSBR:        "fsbr",
	CmdFormat:      "format",
	CmdReboot:      "reboot",
	CmdData:        "data",
	CmdSet:         "set",
	CmdCLI:         "cli",
	CmdDelete:      "delete",
	CmdRename:      "rename",
	CmdFetch:       "fetch",
	CmdFetchChunk:  "fetch_chunk",
	CmdFetchStop:   "fetch_stop",
	CmdUpload:      "upload",
	CmdUploadChunk: "upload_chunk",
	CmdOTA:         "ota",
	CmdOTAChunk:    "ota_chunk",
	CmdOTAURL:      "ota_url",
	CmdRead:        "read",
}

// Commands lists every verb reachable through a command path, in table order
func Commands() []Command {
	out := make([]Command, len(commandNames))
	for i := range commandNames {
		out[i] = Command(i)
	}
	return out
}

// LookupCommand resolves a verb string
func LookupCommand(verb string) (Command, bool) {
	for i, name := range commandNames {
		if name == verb {
			return Command(i), true
		}
	}
	return CmdUnknown, false
}

func (c Command) String() string {
	switch {
	case int(c) < len(commandNames):
		return commandNames[c]
	case c == CmdHTTPFetch:
		return "http_fetch"
	case c == CmdHTTPUpload:
		return "http_upload"
	case c == CmdHTTPOTA:
		return "http_ota"
	}
	return "unknown"
}

// PathLen is the number of path segments the verb is dispatched at.
// Verbs without a name argument live at length 4, the rest at 5.
func (c Command) PathLen() int {
	if c <= CmdReboot || c == CmdRead {
		return 4
	}
	return 5
}

// Path is a command path split into its segments
type Path struct {
	Prefix string
	Device string
	Client string
	Verb   string
	Name   string
	Len    int
}

// SplitPath splits PREFIX/DEVICE/CLIENT/VERB/NAME. The name keeps any further
// slashes so file paths survive.
func SplitPath(raw string) Path {
	parts := strings.SplitN(raw, "/", 5)
	p := Path{Len: len(parts)}
	fields := []*string{&p.Prefix, &p.Device, &p.Client, &p.Verb, &p.Name}
	for i, s := range parts {
		*fields[i] = s
	}
	return p
}

// SplitValue splits NAME=VALUE at the first '='
func SplitValue(url string) (path, value string) {
	if i := strings.IndexByte(url, '='); i >= 0 {
		return url[:i], url[i+1:]
	}
	return url, ""
}

// RebootReason tells the reboot handler why the device restarts
type RebootReason uint8

const (
	RebootNone RebootReason = iota
	RebootButton
	RebootOTA
	RebootOTAURL
)

func (r RebootReason) String() string {
	switch r {
	case RebootButton:
		return "button"
	case RebootOTA:
		return "ota"
	case RebootOTAURL:
		return "ota_url"
	}
	return "none"
}
