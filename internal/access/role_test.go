package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "user", want: RoleUser},
		{in: " Premium ", want: RolePremium},
		{in: "ADMIN", want: RoleAdmin},
		{in: "usuario", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuards(t *testing.T) {
	t.Parallel()

	unknown := Role("guest")
	tests := []struct {
		name  string
		guard Guard
		allow []Role
		deny  []Role
	}{
		{name: "IsUser", guard: IsUser, allow: []Role{RoleUser}, deny: []Role{RolePremium, RoleAdmin, unknown}},
		{name: "IsAdmin", guard: IsAdmin, allow: []Role{RoleAdmin}, deny: []Role{RoleUser, RolePremium, unknown}},
		{name: "IsPremium", guard: IsPremium, allow: []Role{RolePremium}, deny: []Role{RoleUser, RoleAdmin, unknown}},
		{name: "IsNotAdmin", guard: IsNotAdmin, allow: []Role{RoleUser, RolePremium}, deny: []Role{RoleAdmin, unknown}},
		{name: "IsPremiumOrAdmin", guard: IsPremiumOrAdmin, allow: []Role{RolePremium, RoleAdmin}, deny: []Role{RoleUser, unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range tt.allow {
				assert.True(t, tt.guard(r), "role %s should pass", r)
			}
			for _, r := range tt.deny {
				assert.False(t, tt.guard(r), "role %s should be rejected", r)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	assert.False(t, Allowed(RoleAdmin, ActionPurchase))
	assert.True(t, Allowed(RolePremium, ActionPurchase))
	assert.True(t, Allowed(RoleUser, ActionChat))
	assert.False(t, Allowed(RolePremium, ActionChat))
	assert.True(t, Allowed(RoleAdmin, ActionDeleteProduct))
	assert.False(t, Allowed(RolePremium, ActionDeleteProduct))
	assert.False(t, Allowed(RoleAdmin, Action("launch_rockets")))
	assert.True(t, Allowed(RolePremium, ActionUploadDocument))
	assert.False(t, Allowed(RoleAdmin, ActionUploadDocument))
}

func TestToggled(t *testing.T) {
	t.Parallel()

	r, err := RoleUser.Toggled()
	require.NoError(t, err)
	assert.Equal(t, RolePremium, r)

	r, err = RolePremium.Toggled()
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	_, err = RoleAdmin.Toggled()
	require.Error(t, err)
}
