package ess

import "testing"

import "github.com/stretchr/testify/assert"

func TestKeySchemeIsBitExact(t *testing.T) {
	assert.Equal(t, "canvas:c1:presence:u1", PresenceKey("c1", "u1"))
	assert.Equal(t, "canvas:c1:presence", PresenceSetKey("c1"))
	assert.Equal(t, "canvas:c1:conversation:v1:focus:u1", FocusKey("c1", "v1", "u1"))
	assert.Equal(t, "canvas:c1:conversation:v1:focus", FocusSetKey("c1", "v1"))
	assert.Equal(t, "canvas:c1:conversation:v1:node:n1:lock", LockKey("c1", "v1", "n1"))
	assert.Equal(t, "canvas:c1:cursor:u1", CursorKey("c1", "u1"))
	assert.Equal(t, "canvas:c1:cursors", CursorSetKey("c1"))
	assert.Equal(t, "canvas:c1:node:n1:typing:u1", TypingKey("c1", "n1", "u1"))
	assert.Equal(t, "canvas:c1:node:n1:typing", TypingSetKey("c1", "n1"))
	assert.Equal(t, "canvas:c1:activity:u1", HeartbeatKey("c1", "u1"))
	assert.Equal(t, "throttle:cursor:u1", CursorThrottleKey("u1"))
	assert.Equal(t, "canvas:c1:events", EventsChannel("c1"))
	assert.Equal(t, "canvas:*:events", EventsPattern)
}

func TestFocusPatternForUserMatchesAllConversations(t *testing.T) {
	assert.Equal(t, "canvas:c1:conversation:*:focus:u1", FocusPatternForUser("c1", "u1"))
}

func TestTypingPatternForUserMatchesAllNodes(t *testing.T) {
	assert.Equal(t, "canvas:c1:node:*:typing:u1", TypingPatternForUser("c1", "u1"))
}
