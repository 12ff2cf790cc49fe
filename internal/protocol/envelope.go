package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Answer types sent by the device
const (
	TypeOK          = "OK"
	TypeErr         = "ERR"
	TypeInfo        = "info"
	TypeUI          = "ui"
	TypeDiscover    = "discover"
	TypeFSBR        = "fsbr"
	TypeFSError     = "fs_error"
	TypeUpdate      = "update"
	TypePush        = "push"
	TypeNotice      = "notice"
	TypeAlert       = "alert"
	TypePrint       = "print"
	TypeData        = "data"
	TypeFetchStart  = "fetch_start"
	TypeFetchChunk  = "fetch_next_chunk"
	TypeFetchErr    = "fetch_err"
	TypeUploadStart = "upload_start"
	TypeUploadChunk = "upload_next_chunk"
	TypeUploadEnd   = "upload_end"
	TypeUploadErr   = "upload_err"
	TypeOTAStart    = "ota_start"
	TypeOTAChunk    = "ota_next_chunk"
	TypeOTAEnd      = "ota_end"
	TypeOTAErr      = "ota_err"
	TypeOTAURLOK    = "ota_url_ok"
	TypeOTAURLErr   = "ota_url_err"
)

// Error texts carried by ERR answers
const (
	ErrTextForbidden     = "Forbidden"
	ErrTextDisabled      = "Module disabled"
	ErrTextInvalidType   = "Invalid type"
	ErrTextUpdateRunning = "Update already running"
)

// Object writes JSON object members in call order.
//
// Frames on the wire look like:
//
//	\n{"id":"<device id>","type":"<tag>",...}\n
//
// The leading and trailing newlines let stream clients find frame borders.
type Object struct {
	buf *bytes.Buffer
	n   int
}

func (o *Object) key(k string) {
	if o.n > 0 {
		o.buf.WriteByte(',')
	}
	o.n++
	o.buf.Write(AppendString(nil, k))
	o.buf.WriteByte(':')
}

// Str adds a string member
func (o *Object) Str(k, v string) *Object {
	o.key(k)
	o.buf.Write(AppendString(nil, v))
	return o
}

// Int adds an integer member
func (o *Object) Int(k string, v int64) *Object {
	o.key(k)
	o.buf.WriteString(strconv.FormatInt(v, 10))
	return o
}

// Uint adds an unsigned member
func (o *Object) Uint(k string, v uint64) *Object {
	o.key(k)
	o.buf.WriteString(strconv.FormatUint(v, 10))
	return o
}

// Raw adds a member whose value is already encoded JSON
func (o *Object) Raw(k string, raw []byte) *Object {
	o.key(k)
	o.buf.Write(raw)
	return o
}

// Nested adds an object member filled by fill
func (o *Object) Nested(k string, fill func(*Object)) *Object {
	o.key(k)
	o.buf.WriteByte('{')
	inner := &Object{buf: o.buf}
	if fill != nil {
		fill(inner)
	}
	o.buf.WriteByte('}')
	return o
}

// Len reports the number of members written so far
func (o *Object) Len() int {
	return o.n
}

// Envelope is a single answer frame
type Envelope struct {
	Object
	buf bytes.Buffer
}

// NewEnvelope starts a frame carrying the device id and answer type
func NewEnvelope(id, typ string) *Envelope {
	e := &Envelope{}
	e.Object.buf = &e.buf
	e.buf.WriteString("\n{")
	e.Str("id", id)
	e.Str("type", typ)
	return e
}

// Bytes closes the frame and returns it
func (e *Envelope) Bytes() []byte {
	e.buf.WriteString("}\n")
	return e.buf.Bytes()
}

// ErrorFrame builds an ERR answer
func ErrorFrame(id, text string) []byte {
	e := NewEnvelope(id, TypeErr)
	e.Str("text", text)
	return e.Bytes()
}

// TypeFrame builds an answer that only carries its type
func TypeFrame(id, typ string) []byte {
	return NewEnvelope(id, typ).Bytes()
}

const hexDigits = "0123456789abcdef"

// AppendString appends s as a quoted JSON string. Unlike encoding/json it
// leaves <, > and & alone so the encoded length only depends on quoting rules.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				dst = append(dst, '\\', c)
			case c == '\n':
				dst = append(dst, '\\', 'n')
			case c == '\r':
				dst = append(dst, '\\', 'r')
			case c == '\t':
				dst = append(dst, '\\', 't')
			case c < 0x20:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			default:
				dst = append(dst, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, `�`...)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}

// Frame is a decoded answer as seen by a client
type Frame struct {
	ID     string                     `json:"id"`
	Type   string                     `json:"type"`
	Text   string                     `json:"text,omitempty"`
	Fields map[string]json.RawMessage `json:"-"`
}

// Field decodes one member of the frame into v
func (f Frame) Field(name string, v any) error {
	raw, ok := f.Fields[name]
	if !ok {
		return fmt.Errorf("field %q missing from %s answer", name, f.Type)
	}
	return json.Unmarshal(raw, v)
}

// DecodeFrames splits a byte stream into answer frames. Whitespace between
// frames is skipped.
func DecodeFrames(data []byte) ([]Frame, error) {
	var frames []Frame
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))
	for dec.More() {
		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err != nil {
			return frames, fmt.Errorf("failed to decode answer: %w", err)
		}
		f := Frame{Fields: fields}
		if raw, ok := fields["id"]; ok {
			_ = json.Unmarshal(raw, &f.ID)
		}
		if raw, ok := fields["type"]; ok {
			_ = json.Unmarshal(raw, &f.Type)
		}
		if raw, ok := fields["text"]; ok {
			_ = json.Unmarshal(raw, &f.Text)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
