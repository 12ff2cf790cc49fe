package protocol

// Event reports what the dispatcher just did, for logging and monitoring
type Event uint8

const (
	EventStart Event = iota
	EventStop
	EventDiscoverAll
	EventDiscover
	EventUnknown
	EventFocus
	EventPing
	EventUnfocus
	EventInfo
	EventFSBR
	EventFormat
	EventReboot
	EventData
	EventSet
	EventCLI
	EventDelete
	EventRename
	EventFetch
	EventFetchError
	EventFetchChunk
	EventFetchFinish
	EventFetchAborted
	EventUpload
	EventUploadError
	EventUploadChunk
	EventUploadFinish
	EventUploadAborted
	EventOTA
	EventOTAError
	EventOTAChunk
	EventOTAFinish
	EventOTAAborted
	EventOTAURL
	EventReadHook
	EventSetHook
	EventConnecting
	EventConnected
	EventError
)

var eventNames = [...]string{
	EventStart:         "start",
	EventStop:          "stop",
	EventDiscoverAll:   "discover_all",
	EventDiscover:      "discover",
	EventUnknown:       "unknown",
	EventFocus:         "focus",
	EventPing:          "ping",
	EventUnfocus:       "unfocus",
	EventInfo:          "info",
	EventFSBR:          "fsbr",
	EventFormat:        "format",
	EventReboot:        "reboot",
	EventData:          "data",
	EventSet:           "set",
	EventCLI:           "cli",
	EventDelete:        "delete",
	EventRename:        "rename",
	EventFetch:         "fetch",
	EventFetchError:    "fetch_error",
	EventFetchChunk:    "fetch_chunk",
	EventFetchFinish:   "fetch_finish",
	EventFetchAborted:  "fetch_aborted",
	EventUpload:        "upload",
	EventUploadError:   "upload_error",
	EventUploadChunk:   "upload_chunk",
	EventUploadFinish:  "upload_finish",
	EventUploadAborted: "upload_aborted",
	EventOTA:           "ota",
	EventOTAError:      "ota_error",
	EventOTAChunk:      "ota_chunk",
	EventOTAFinish:     "ota_finish",
	EventOTAAborted:    "ota_aborted",
	EventOTAURL:        "ota_url",
	EventReadHook:      "read_hook",
	EventSetHook:       "set_hook",
	EventConnecting:    "connecting",
	EventConnected:     "connected",
	EventError:         "error",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "event?"
}
