package parser

import (
	"strconv"
	"strings"
)

// Registration is one row of `iax2 show registry`.
type Registration struct {
	Host      string `json:"host"`
	DNSMgr    string `json:"dnsmgr,omitempty"`
	Username  string `json:"username"`
	Perceived string `json:"perceived_address"`
	Refresh   int    `json:"refresh_seconds"`
	State     string `json:"state"`
}

// ParseRegistrations decodes the registration table. The header and the
// "N IAX2 registrations." footer are skipped. Tables with and without the
// dnsmgr column are accepted.
func ParseRegistrations(text string) []Registration {
	out := make([]Registration, 0)
	for _, line := range Lines(text) {
		f := strings.Fields(line)
		if len(f) < 5 || strings.EqualFold(f[0], "Host") || isFooter(f) {
			continue
		}
		var r Registration
		rest := f
		r.Host = rest[0]
		if rest[1] == "Y" || rest[1] == "N" {
			r.DNSMgr = rest[1]
			rest = rest[2:]
		} else {
			rest = rest[1:]
		}
		if len(rest) < 4 {
			continue
		}
		r.Username = rest[0]
		r.Perceived = rest[1]
		r.Refresh, _ = strconv.Atoi(rest[2])
		r.State = strings.Join(rest[3:], " ")
		out = append(out, r)
	}
	return out
}

func isFooter(f []string) bool {
	if len(f) < 2 {
		return false
	}
	_, err := strconv.Atoi(f[0])
	return err == nil && strings.EqualFold(f[1], "IAX2")
}

// LinkStat is one row of `rpt lstats`.
type LinkStat struct {
	Node        string `json:"node"`
	Peer        string `json:"peer"`
	Reconnects  int    `json:"reconnects"`
	Direction   string `json:"direction"`
	ConnectTime string `json:"connect_time"`
	State       string `json:"state"`
}

// ParseLinkStats decodes the `rpt lstats` table.
func ParseLinkStats(text string) []LinkStat {
	out := make([]LinkStat, 0)
	for _, line := range Lines(text) {
		f := strings.Fields(line)
		if len(f) < 6 || strings.EqualFold(f[0], "NODE") || strings.HasPrefix(f[0], "--") {
			continue
		}
		reconnects, err := strconv.Atoi(f[2])
		if err != nil {
			continue
		}
		out = append(out, LinkStat{
			Node:        f[0],
			Peer:        f[1],
			Reconnects:  reconnects,
			Direction:   f[3],
			ConnectTime: f[4],
			State:       strings.Join(f[5:], " "),
		})
	}
	return out
}
