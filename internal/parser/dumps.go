package parser

import (
	"bufio"
	"io"
	"strings"
)

// DumpEntry is one station from an EchoLink or IRLP directory dump.
type DumpEntry struct {
	Node     string `json:"node"`
	Callsign string `json:"callsign"`
	Location string `json:"location,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// echoLinkMissing appears in the reply when the EchoLink channel driver is
// not loaded.
const echoLinkMissing = "No such command"

// ParseEchoLinkDump decodes `echolink dbdump` output (node|callsign|ip).
// available is false when the EchoLink module is not loaded.
func ParseEchoLinkDump(text string) (entries []DumpEntry, available bool) {
	if strings.Contains(text, echoLinkMissing) {
		return []DumpEntry{}, false
	}
	entries = make([]DumpEntry, 0)
	for _, line := range Lines(text) {
		f := strings.Split(line, "|")
		if len(f) < 3 {
			continue
		}
		entries = append(entries, DumpEntry{
			Node:     strings.TrimSpace(f[0]),
			Callsign: strings.TrimSpace(f[1]),
			IP:       strings.TrimSpace(f[2]),
		})
	}
	return entries, true
}

// ParseIRLPDump decodes the IRLP station list
// (node|callsign|city|state|country|...). A read error, such as a truncated
// gzip stream, is returned together with the entries decoded so far.
func ParseIRLPDump(r io.Reader) ([]DumpEntry, error) {
	out := make([]DumpEntry, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		f := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "|")
		if len(f) < 5 {
			continue
		}
		loc := strings.TrimSpace(f[2]) + ", " + strings.TrimSpace(f[3]) + " " + strings.TrimSpace(f[4])
		out = append(out, DumpEntry{
			Node:     strings.TrimSpace(f[0]),
			Callsign: strings.TrimSpace(f[1]),
			Location: strings.TrimSpace(loc),
		})
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// FilterByCallsign keeps entries whose callsign contains q, case-insensitively.
func FilterByCallsign(entries []DumpEntry, q string, limit int) []DumpEntry {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]DumpEntry, 0)
	if q == "" {
		return out
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Callsign), q) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// FilterByNode keeps entries whose node equals node.
func FilterByNode(entries []DumpEntry, node string) []DumpEntry {
	out := make([]DumpEntry, 0)
	for _, e := range entries {
		if e.Node == node {
			out = append(out, e)
		}
	}
	return out
}
