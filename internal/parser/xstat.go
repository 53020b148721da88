package parser

import (
	"strings"
)

// MinLinkedNode is the lowest node number reported as an indirect link.
// Lower numbers are private nodes.
const MinLinkedNode = 2000

// Link mode characters used in LinkedNodes lists.
const (
	ModeTransceive   = 'T'
	ModeReceive      = 'R'
	ModeConnecting   = 'C'
	ModeLocalMonitor = 'L'
)

// XStatConn is one directly connected node.
type XStatConn struct {
	Node      string
	IP        string // empty for EchoLink peers
	Port      string
	Direction string
	Elapsed   string
	State     string
}

// LinkedNode is one entry of the LinkedNodes list.
type LinkedNode struct {
	Node string
	Mode byte
}

// XStat is the decoded RptStatus/XStat reply (or `rpt xnode` output).
type XStat struct {
	Node   string
	Vars   map[string]string
	Conns  []XStatConn
	Linked []LinkedNode
}

// Var returns the variable value and whether it was present.
func (x *XStat) Var(key string) (string, bool) {
	v, ok := x.Vars[key]
	return v, ok
}

// LinkMode returns the mode character reported for node.
func (x *XStat) LinkMode(node string) (byte, bool) {
	for _, l := range x.Linked {
		if l.Node == node {
			return l.Mode, true
		}
	}
	return 0, false
}

// IndirectNodes returns linked nodes that are not directly connected,
// excluding numeric IDs below MinLinkedNode.
func (x *XStat) IndirectNodes() []string {
	direct := make(map[string]struct{}, len(x.Conns))
	for _, c := range x.Conns {
		direct[c.Node] = struct{}{}
	}
	out := make([]string, 0)
	for _, l := range x.Linked {
		if _, ok := direct[l.Node]; ok {
			continue
		}
		if n, ok := NodeNumber(l.Node); ok && n < MinLinkedNode {
			continue
		}
		out = append(out, l.Node)
	}
	return out
}

// xnodeNone is printed by `rpt xnode` in place of an empty connection row.
const xnodeNone = "<NONE>"

// ParseXStat decodes Var, Conn and LinkedNodes lines. It also reads the
// `rpt xnode` layout: connection rows terminated by '~', a comma separated
// linked node list and bare NAME=value variable lines.
func ParseXStat(text string) *XStat {
	x := &XStat{Vars: make(map[string]string)}

	for _, line := range Lines(text) {
		if v, ok := field(line, "Node"); ok && x.Node == "" {
			x.Node = v
			continue
		}
		if v, ok := field(line, "Var"); ok {
			if k, val, ok := strings.Cut(v, "="); ok {
				x.Vars[strings.TrimSpace(k)] = strings.TrimSpace(val)
			}
			continue
		}
		if v, ok := field(line, "Conn"); ok {
			if c, ok := parseXStatConn(v); ok {
				x.Conns = append(x.Conns, c)
			}
			continue
		}
		if v, ok := field(line, "LinkedNodes"); ok {
			x.Linked = append(x.Linked, parseLinkedNodes(v)...)
			continue
		}
		x.parseXNodeLine(line)
	}
	return x
}

func (x *XStat) parseXNodeLine(line string) {
	switch {
	case line == xnodeNone:
	case strings.Contains(line, "~"):
		for _, row := range strings.Split(line, "~") {
			if c, ok := parseXStatConn(row); ok {
				x.Conns = append(x.Conns, c)
			}
		}
	case isVarLine(line):
		k, v, _ := strings.Cut(line, "=")
		x.Vars[k] = strings.TrimSpace(v)
	case isLinkedList(line):
		x.Linked = append(x.Linked, parseLinkedNodes(line)...)
	}
}

// isVarLine matches NAME=value where NAME is an identifier.
func isVarLine(line string) bool {
	k, _, ok := strings.Cut(line, "=")
	if !ok || k == "" {
		return false
	}
	for _, r := range k {
		if r != '_' && (r < '0' || r > '9') && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// isLinkedList matches "T546054, R2000" with every token a mode letter
// followed by a numeric node ID.
func isLinkedList(line string) bool {
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 {
			return false
		}
		if _, ok := NodeNumber(tok[1:]); !ok {
			return false
		}
		switch tok[0] {
		case ModeTransceive, ModeReceive, ModeConnecting, ModeLocalMonitor:
		default:
			return false
		}
	}
	return true
}

func parseXStatConn(v string) (XStatConn, bool) {
	f := strings.Fields(v)
	switch {
	case len(f) >= 6:
		return XStatConn{Node: f[0], IP: f[1], Port: f[2], Direction: f[3], Elapsed: f[4], State: strings.Join(f[5:], " ")}, true
	case len(f) == 5:
		// EchoLink peers carry no IP column.
		return XStatConn{Node: f[0], Port: f[1], Direction: f[2], Elapsed: f[3], State: f[4]}, true
	default:
		return XStatConn{}, false
	}
}

func parseLinkedNodes(v string) []LinkedNode {
	var out []LinkedNode
	for _, tok := range strings.Split(v, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 {
			continue
		}
		out = append(out, LinkedNode{Mode: tok[0], Node: tok[1:]})
	}
	return out
}
