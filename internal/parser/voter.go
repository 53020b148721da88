package parser

import "strings"

// Receiver name suffixes stripped from VoterStatus client names.
var voterSuffixes = []string{" Master ActiveMaster", " Local Local"}

const voterMixSuffix = " Mix"

// VoterClient is one voting receiver.
type VoterClient struct {
	Name  string `json:"name"`
	RSSI  string `json:"rssi"`
	IP    string `json:"ip"`
	IsMix bool   `json:"is_mix"`
}

// VoterNode groups the receivers of one voter instance.
type VoterNode struct {
	Node    string        `json:"node"`
	Clients []VoterClient `json:"clients"`
	Voted   string        `json:"voted"`
}

// ParseVoterStatus decodes a VoterStatus reply. Client lines that appear
// before any Node line are ignored.
func ParseVoterStatus(text string) []VoterNode {
	var nodes []VoterNode
	cur := -1
	client := -1

	for _, line := range Lines(text) {
		if v, ok := field(line, "Node"); ok {
			nodes = append(nodes, VoterNode{Node: v, Clients: []VoterClient{}})
			cur, client = len(nodes)-1, -1
			continue
		}
		if cur < 0 {
			continue
		}
		n := &nodes[cur]
		switch {
		case hasField(line, "Client"):
			v, _ := field(line, "Client")
			c := VoterClient{RSSI: "N/A", IP: "N/A"}
			for _, s := range voterSuffixes {
				v = strings.TrimSuffix(v, s)
			}
			if strings.HasSuffix(v, voterMixSuffix) {
				v = strings.TrimSuffix(v, voterMixSuffix)
				c.IsMix = true
			}
			c.Name = strings.TrimSpace(v)
			n.Clients = append(n.Clients, c)
			client = len(n.Clients) - 1
		case hasField(line, "RSSI") && client >= 0:
			n.Clients[client].RSSI, _ = field(line, "RSSI")
		case hasField(line, "IP") && client >= 0:
			n.Clients[client].IP, _ = field(line, "IP")
		case hasField(line, "Voted"):
			n.Voted, _ = field(line, "Voted")
		}
	}
	if nodes == nil {
		return []VoterNode{}
	}
	return nodes
}

func hasField(line, key string) bool {
	_, ok := field(line, key)
	return ok
}
