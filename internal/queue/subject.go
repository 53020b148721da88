package queue

import "strings"

// SubjectPrefix roots every node event subject
const SubjectPrefix = "supermon.nodes"

// Event subject suffixes
const (
	SuffixStatus = "status"
	SuffixLink   = "link"
)

// StatusSubject is where status snapshots of a node are published
func StatusSubject(node string) string {
	return SubjectPrefix + "." + node + "." + SuffixStatus
}

// LinkSubject is where link commands issued against a node are published
func LinkSubject(node string) string {
	return SubjectPrefix + "." + node + "." + SuffixLink
}

// AllStatusSubject matches status events of every node
func AllStatusSubject() string {
	return SubjectPrefix + ".*." + SuffixStatus
}

// AllLinkSubject matches link events of every node
func AllLinkSubject() string {
	return SubjectPrefix + ".*." + SuffixLink
}

// IsWildcard reports whether subject contains a '*' or '>' token
func IsWildcard(subject string) bool {
	for _, tok := range strings.Split(subject, ".") {
		if tok == "*" || tok == ">" {
			return true
		}
	}
	return false
}

// MatchSubject matches subject against a NATS-style pattern.
// '*' matches exactly one token, a trailing '>' matches one or more.
func MatchSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

// mqttTopic maps a dotted subject to an MQTT topic filter
func mqttTopic(subject string) string {
	toks := strings.Split(subject, ".")
	for i, t := range toks {
		switch t {
		case "*":
			toks[i] = "+"
		case ">":
			toks[i] = "#"
		}
	}
	return strings.Join(toks, "/")
}
