package models

import (
	"time"

	"github.com/supermon-ng/supermon-ng/internal/parser"
)

// Node status values
const (
	StatusOnline     = "online"
	StatusOffline    = "offline"
	StatusAuthFailed = "auth_failed"
)

// Connection directions
const (
	DirectionIn      = "IN"
	DirectionOut     = "OUT"
	DirectionUnknown = "UNKNOWN"
)

// Keyed values of a connected node
const (
	KeyedYes = "yes"
	KeyedNo  = "no"
	KeyedNA  = "n/a"
)

// LastKeyedNever is reported for connections that never keyed up
const LastKeyedNever = "Never"

// NodeStatus is the normalized status of one local node.
// Telemetry fields are nil when the node does not report the variable.
type NodeStatus struct {
	NodeID    string    `json:"node_id"`
	Status    string    `json:"status"`
	IsOnline  bool      `json:"is_online"`
	Info      string    `json:"info"`
	CosKeyed  bool      `json:"cos_keyed"`
	TxKeyed   bool      `json:"tx_keyed"`
	CPUTemp   *string   `json:"cpu_temp"`
	CPUUptime *string   `json:"cpu_uptime"`
	CPULoad   *string   `json:"cpu_load"`
	Alert     *string   `json:"alert"`
	Weather   *string   `json:"weather"`
	Disk      *string   `json:"disk"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	ConnectedNodes []ConnectedNode `json:"connected_nodes"`
	// LinkedNodes are nodes reachable through a connected node, not directly
	LinkedNodes []string `json:"linked_nodes"`
}

// ConnectedNode is one node directly linked to a local node
type ConnectedNode struct {
	NodeID    string  `json:"node_id"`
	Info      string  `json:"info"`
	IP        *string `json:"ip"`
	Direction string  `json:"direction"`
	LinkState string  `json:"link_state"`
	Elapsed   string  `json:"elapsed"`
	Mode      string  `json:"mode"`
	Keyed     string  `json:"keyed"`
	LastKeyed string  `json:"last_keyed"`
}

// NodeTime carries the fast-changing timers of a connection for the
// nodetimes stream event
type NodeTime struct {
	NodeID    string `json:"node_id"`
	Elapsed   string `json:"elapsed"`
	LastKeyed string `json:"last_keyed"`
}

// CommandResult is returned by link and reload style actions
type CommandResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RawOutput string `json:"raw_output"`
}

// Lookup sources
const (
	SourceAllStar  = "AllStar"
	SourceEchoLink = "EchoLink"
	SourceIRLP     = "IRLP"
)

// LookupGroup is the result of one network sub-search
type LookupGroup struct {
	Source    string        `json:"source"`
	QueryEcho string        `json:"query_echo"`
	Entries   []LookupEntry `json:"entries"`
	Error     string        `json:"error,omitempty"`
}

// LookupEntry is one station found by a lookup
type LookupEntry struct {
	Node        string `json:"node"`
	Callsign    string `json:"callsign"`
	Description string `json:"description"`
	Location    string `json:"location"`
	IP          string `json:"ip,omitempty"`
	Status      string `json:"status,omitempty"`
}

// LookupResponse groups every sub-search of a lookup
type LookupResponse struct {
	Query  string        `json:"query"`
	Kind   string        `json:"kind"`
	Groups []LookupGroup `json:"groups"`
}

// LinkEvent is published after every link command
type LinkEvent struct {
	Local     string `json:"local"`
	Remote    string `json:"remote"`
	Action    string `json:"action"`
	Permanent bool   `json:"permanent"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// VoterResponse lists the voter receivers of a node
type VoterResponse struct {
	Node   string             `json:"node"`
	Voters []parser.VoterNode `json:"voters"`
}

// LinkStatsResponse is the decoded `rpt lstats` table of a node
type LinkStatsResponse struct {
	Node  string            `json:"node"`
	Links []parser.LinkStat `json:"links"`
}

// RegistrationsResponse is the decoded `iax2 show registry` table
type RegistrationsResponse struct {
	Node          string                `json:"node"`
	Registrations []parser.Registration `json:"registrations"`
}
