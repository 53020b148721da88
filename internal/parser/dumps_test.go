package parser

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEchoLinkDump(t *testing.T) {
	entries, ok := ParseEchoLinkDump("Output: 123456|W5GLE-R|1.2.3.4\nOutput: 234567|K5ABC-L|5.6.7.8\nOutput: bogus\n")
	assert.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, DumpEntry{Node: "123456", Callsign: "W5GLE-R", IP: "1.2.3.4"}, entries[0])

	entries, ok = ParseEchoLinkDump("Output: No such command 'echolink dbdump'\n")
	assert.False(t, ok)
	assert.Empty(t, entries)
}

func TestParseIRLPDump(t *testing.T) {
	in := "1234|VE7LTD|Vancouver|BC|Canada|extra\n5678|W1AW|Newington|CT|USA\nshort|line\n"
	entries, err := ParseIRLPDump(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DumpEntry{Node: "1234", Callsign: "VE7LTD", Location: "Vancouver, BC Canada"}, entries[0])
}

func TestParseIRLPDump_ReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("1234|VE7LTD|Vancouver|BC|Canada\n"), iotest.ErrReader(io.ErrUnexpectedEOF))
	entries, err := ParseIRLPDump(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, entries, 1)
}

func TestFilters(t *testing.T) {
	entries := []DumpEntry{
		{Node: "1234", Callsign: "VE7LTD"},
		{Node: "12345", Callsign: "W1AW"},
		{Node: "5678", Callsign: "VE7ABC"},
	}

	assert.Len(t, FilterByCallsign(entries, "ve7", 0), 2)
	assert.Len(t, FilterByCallsign(entries, "ve7", 1), 1)
	assert.Empty(t, FilterByCallsign(entries, " ", 0))

	got := FilterByNode(entries, "1234")
	require.Len(t, got, 1)
	assert.Equal(t, "VE7LTD", got[0].Callsign)
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, Lines("Output: a\r\n\r\n  b c  \n"))
	assert.Empty(t, Lines(""))
}
