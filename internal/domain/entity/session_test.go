package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession()

	assert.Len(t, s.UserID, 8)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, PhaseModeSelection, s.Phase)
	assert.Empty(t, s.Messages)
	assert.Zero(t, s.CollectionIndex)
	assert.Nil(t, s.Profile)
	assert.Nil(t, s.StartTime)

	other := NewSession()
	assert.NotEqual(t, s.UserID, other.UserID)
}

func TestRecentMessagesWindow(t *testing.T) {
	s := NewSession()
	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.AppendMessage(role, string(rune('a'+i)))
	}

	recent := s.RecentMessages(6)
	require.Len(t, recent, 6)
	assert.Equal(t, "e", recent[0].Content)
	assert.Equal(t, "j", recent[5].Content)

	all := s.RecentMessages(100)
	assert.Len(t, all, 10)
}

func TestLastAssistantMessage(t *testing.T) {
	s := NewSession()
	assert.Empty(t, s.LastAssistantMessage())

	s.AppendMessage(RoleAssistant, "첫 응답")
	s.AppendMessage(RoleUser, "질문")
	assert.Equal(t, "첫 응답", s.LastAssistantMessage())
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "A", ModeFixed.Label())
	assert.Equal(t, "B", ModeMirroring.Label())
	assert.True(t, ModeFixed.Valid())
	assert.False(t, Mode("adaptive").Valid())
	assert.True(t, MirrorLevelHigh.Valid())
	assert.False(t, MirrorLevel("max").Valid())
}
