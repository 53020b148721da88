package parser

import (
	"strconv"
	"strings"
)

// KeyTiming is the keying state of one connected node.
type KeyTiming struct {
	Node  string
	Keyed bool
	// SinceKeyed is seconds since the node last keyed, -1 when never.
	SinceKeyed int64
	// SinceUnkeyed is seconds since the node last unkeyed, -1 when never.
	SinceUnkeyed int64
}

// ParseSawStat decodes "Conn: node isKeyed keyedSecs unkeyedSecs" lines
// keyed by node ID.
func ParseSawStat(text string) map[string]KeyTiming {
	out := make(map[string]KeyTiming)
	for _, line := range Lines(text) {
		v, ok := field(line, "Conn")
		if !ok {
			continue
		}
		f := strings.Fields(v)
		if len(f) < 4 {
			continue
		}
		out[f[0]] = KeyTiming{
			Node:         f[0],
			Keyed:        f[1] == "1",
			SinceKeyed:   seconds(f[2]),
			SinceUnkeyed: seconds(f[3]),
		}
	}
	return out
}

func seconds(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
