package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistrations(t *testing.T) {
	text := `Output: Host                                    dnsmgr  Username    Perceived                                Refresh  State
Output: 162.248.92.131:4569                     Y       546051      73.6.70.88:4569                              60  Registered
Output: 34.105.111.212:4569                     N       546052      <Unregistered>                               60  Request Sent
Output: 2 IAX2 registrations.
`
	got := ParseRegistrations(text)
	require.Len(t, got, 2)
	assert.Equal(t, Registration{
		Host: "162.248.92.131:4569", DNSMgr: "Y", Username: "546051",
		Perceived: "73.6.70.88:4569", Refresh: 60, State: "Registered",
	}, got[0])
	assert.Equal(t, "Request Sent", got[1].State)
	assert.Equal(t, "<Unregistered>", got[1].Perceived)
}

func TestParseRegistrations_WithoutDNSMgrColumn(t *testing.T) {
	text := "Host                  Username    Perceived             Refresh  State\n" +
		"162.248.92.131:4569   546051      73.6.70.88:4569       60  Registered\n" +
		"1 IAX2 registrations.\n"
	got := ParseRegistrations(text)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].DNSMgr)
	assert.Equal(t, "546051", got[0].Username)
	assert.Equal(t, 60, got[0].Refresh)
	assert.Equal(t, "Registered", got[0].State)
}

func TestParseRegistrations_Empty(t *testing.T) {
	assert.Empty(t, ParseRegistrations("0 IAX2 registrations.\n"))
	assert.Empty(t, ParseRegistrations(""))
}

func TestParseLinkStats(t *testing.T) {
	text := `NODE      PEER                RECONNECTS  DIRECTION  CONNECT TIME        CONNECT STATE
----      ----                ----------  ---------  ------------        -------------
546054    73.6.70.88              0          OUT        31:49:24            ESTABLISHED
2000      10.0.0.9                3          IN         00:00:05            CONNECTING
`
	got := ParseLinkStats(text)
	require.Len(t, got, 2)
	assert.Equal(t, LinkStat{Node: "546054", Peer: "73.6.70.88", Reconnects: 0, Direction: "OUT", ConnectTime: "31:49:24", State: "ESTABLISHED"}, got[0])
	assert.Equal(t, 3, got[1].Reconnects)
	assert.Empty(t, ParseLinkStats(""))
}
