// Package parser decodes the text replies of app_rpt and Asterisk manager
// commands. Text parsers never fail: lines they do not recognise are skipped
// and absent data yields an empty result. Only stream readers such as
// ParseIRLPDump report errors.
package parser

import (
	"strconv"
	"strings"
)

const outputPrefix = "Output:"

// Lines splits text into trimmed lines, dropping the optional "Output:"
// prefix that manager Command replies put in front of every line.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.HasPrefix(l, outputPrefix) {
			l = l[len(outputPrefix):]
		}
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// field splits "Key: value" and reports whether the key matched.
func field(line, key string) (string, bool) {
	if len(line) <= len(key) || !strings.EqualFold(line[:len(key)], key) || line[len(key)] != ':' {
		return "", false
	}
	return strings.TrimSpace(line[len(key)+1:]), true
}

// NodeNumber parses a numeric node ID.
func NodeNumber(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
