package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"supermon.nodes.2000.status", "supermon.nodes.2000.status", true},
		{"supermon.nodes.2000.status", "supermon.nodes.2001.status", false},
		{"supermon.nodes.*.status", "supermon.nodes.2001.status", true},
		{"supermon.nodes.*.status", "supermon.nodes.2001.link", false},
		{"supermon.nodes.*", "supermon.nodes.2001.link", false},
		{"supermon.nodes.>", "supermon.nodes.2001.link", true},
		{"supermon.nodes.>", "supermon.nodes", false},
		{"supermon.>", "supermon.nodes.1.status", true},
		{"supermon.nodes.2000", "supermon.nodes.2000.status", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchSubject(tt.pattern, tt.subject))
		})
	}
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "supermon.nodes.2000.status", StatusSubject("2000"))
	assert.Equal(t, "supermon.nodes.2000.link", LinkSubject("2000"))
	assert.True(t, IsWildcard(AllStatusSubject()))
	assert.False(t, IsWildcard(StatusSubject("2000")))
	assert.True(t, MatchSubject(AllStatusSubject(), StatusSubject("46611")))
	assert.True(t, MatchSubject(AllLinkSubject(), LinkSubject("46611")))
	assert.False(t, MatchSubject(AllLinkSubject(), StatusSubject("46611")))
}

func TestMQTTTopic(t *testing.T) {
	assert.Equal(t, "supermon/nodes/2000/status", mqttTopic(StatusSubject("2000")))
	assert.Equal(t, "supermon/nodes/+/status", mqttTopic(AllStatusSubject()))
	assert.Equal(t, "supermon/#", mqttTopic("supermon.>"))
}
