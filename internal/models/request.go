package models

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Link actions accepted by the link endpoint
const (
	LinkConnect      = "connect"
	LinkDisconnect   = "disconnect"
	LinkMonitor      = "monitor"
	LinkLocalMonitor = "localmonitor"
)

// MaxDTMFDigits bounds a single DTMF request
const MaxDTMFDigits = 32

// LinkRequest represents a link switch request
type LinkRequest struct {
	Remote    string `json:"remote"`
	Action    string `json:"action"`
	Permanent bool   `json:"permanent"`
}

// Validate normalizes the action and checks the remote node number
func (r *LinkRequest) Validate() error {
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.Remote = strings.TrimSpace(r.Remote)

	switch r.Action {
	case LinkConnect, LinkDisconnect, LinkMonitor, LinkLocalMonitor:
	default:
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "action must be one of: connect, disconnect, monitor, localmonitor",
		}
	}

	if !IsNodeID(r.Remote) {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "remote must be a numeric node number",
		}
	}
	return nil
}

// DTMFRequest represents a DTMF function request
type DTMFRequest struct {
	Digits string `json:"digits"`
}

// Validate checks the digits against the DTMF alphabet
func (r *DTMFRequest) Validate() error {
	r.Digits = strings.ToUpper(strings.TrimSpace(r.Digits))
	if r.Digits == "" || len(r.Digits) > MaxDTMFDigits {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "digits must contain 1 to 32 characters",
		}
	}
	for _, c := range r.Digits {
		if !strings.ContainsRune("0123456789*#ABCD", c) {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "digits may only contain 0-9, *, # and A-D",
			}
		}
	}
	return nil
}

// IsNodeID reports whether id is a non-empty decimal node number
func IsNodeID(id string) bool {
	if id == "" || len(id) > 10 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseNodeList splits a comma-separated node list, dropping blanks and
// duplicates while keeping order
func ParseNodeList(s string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, n := range strings.Split(s, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
