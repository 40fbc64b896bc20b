package session_test

import (
	"testing"

	session "github.com/reelbase/go-session"
	"github.com/stretchr/testify/assert"
)

func TestRole_IsValid(t *testing.T) {
	assert.True(t, session.RoleViewer.IsValid())
	assert.True(t, session.RoleReviewer.IsValid())
	assert.True(t, session.RoleAdmin.IsValid())
	assert.False(t, session.Role("owner").IsValid())
	assert.False(t, session.Role("").IsValid())
}

func TestRole_IsAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     session.Role
		minRole  session.Role
		expected bool
	}{
		{"viewer meets viewer", session.RoleViewer, session.RoleViewer, true},
		{"viewer below reviewer", session.RoleViewer, session.RoleReviewer, false},
		{"viewer below admin", session.RoleViewer, session.RoleAdmin, false},
		{"reviewer meets viewer", session.RoleReviewer, session.RoleViewer, true},
		{"reviewer meets reviewer", session.RoleReviewer, session.RoleReviewer, true},
		{"reviewer below admin", session.RoleReviewer, session.RoleAdmin, false},
		{"admin meets viewer", session.RoleAdmin, session.RoleViewer, true},
		{"admin meets reviewer", session.RoleAdmin, session.RoleReviewer, true},
		{"admin meets admin", session.RoleAdmin, session.RoleAdmin, true},
		{"unknown role meets nothing", session.Role("owner"), session.RoleViewer, false},
		{"unknown minimum never met", session.RoleAdmin, session.Role("owner"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsAtLeast(tt.minRole))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := session.ParseRole("reviewer")
	assert.True(t, ok)
	assert.Equal(t, session.RoleReviewer, role)

	_, ok = session.ParseRole("superuser")
	assert.False(t, ok)
}

func TestAllRoles(t *testing.T) {
	assert.Equal(t, []session.Role{
		session.RoleViewer,
		session.RoleReviewer,
		session.RoleAdmin,
	}, session.AllRoles())
}
