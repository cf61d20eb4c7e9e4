package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHouseholdSeedsClaims(t *testing.T) {
	now := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)

	h, err := New("HH001", map[string]string{"block": "123A"}, []string{"May_2025", "Jan_2026"}, now)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"May_2025": false, "Jan_2026": false}, h.Claims)
	assert.Equal(t, now, h.CreatedAt)
}

func TestNewHouseholdRequiresID(t *testing.T) {
	_, err := New("", nil, nil, time.Now())
	require.Error(t, err)
}

func TestCanClaim(t *testing.T) {
	h, err := New("HH001", nil, []string{"May_2025"}, time.Now())
	require.NoError(t, err)

	assert.True(t, h.CanClaim("May_2025"))
	assert.False(t, h.CanClaim("Jan_2026"))

	h.MarkClaimed("May_2025")
	assert.False(t, h.CanClaim("May_2025"))
}

func TestCloneIsDeep(t *testing.T) {
	h, err := New("HH001", map[string]string{"block": "123A"}, []string{"May_2025"}, time.Now())
	require.NoError(t, err)

	dup := h.Clone()
	dup.Info["block"] = "456B"
	dup.MarkClaimed("May_2025")

	assert.Equal(t, "123A", h.Info["block"])
	assert.True(t, h.CanClaim("May_2025"))
}
