package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBufferReassembles(t *testing.T) {
	var lb LineBuffer
	var got []string
	collect := func(s string) { got = append(got, s) }

	lb.Feed([]byte("myhub/1a"), collect)
	assert.Empty(t, got)
	assert.Equal(t, 8, lb.Pending())

	lb.Feed([]byte("2b3c\r\n\nmyhub\nmyhub/1a2b3c/c/pi"), collect)
	assert.Equal(t, []string{"myhub/1a2b3c", "myhub"}, got)

	lb.Feed([]byte("ng\n"), collect)
	assert.Equal(t, "myhub/1a2b3c/c/ping", got[2])
	assert.Zero(t, lb.Pending())
}

func TestLineBufferOverflow(t *testing.T) {
	var lb LineBuffer
	var got []string
	lb.Feed([]byte(strings.Repeat("x", MaxLine+1)), func(s string) { got = append(got, s) })
	lb.Feed([]byte("tail\nok\n"), func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"ok"}, got)
}

func TestSplit(t *testing.T) {
	var parts []string
	require.NoError(t, Split([]byte("abcdefg"), 3, func(p []byte) error {
		parts = append(parts, string(p))
		return nil
	}))
	assert.Equal(t, []string{"abc", "def", "g"}, parts)

	boom := errors.New("boom")
	calls := 0
	err := Split([]byte("abcdef"), 2, func([]byte) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestHexDump(t *testing.T) {
	out := HexDump([]byte("GyverHub\x00\x01"))
	assert.True(t, strings.HasPrefix(out, "0000  47 79 76 65 72 48 75 62  00 01"))
	assert.True(t, strings.HasSuffix(out, "|GyverHub..|\n"))
	assert.False(t, IsTextData([]byte{0x00}))
	assert.True(t, IsTextData([]byte("a\tb\r\n")))
}

func TestTrace(t *testing.T) {
	var lines []string
	logf := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	Trace(logf, "rx", []byte("ping"))
	Trace(logf, "tx", []byte{0xff})
	require.Len(t, lines, 2)
	assert.Equal(t, `rx "ping"`, lines[0])
	assert.Contains(t, lines[1], "tx 1 bytes\n0000  ff")
}
