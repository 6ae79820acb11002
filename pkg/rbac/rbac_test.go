package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		permission string
		want       bool
	}{
		{name: "user reads tasks", role: RoleUser, permission: PermissionReadTask, want: true},
		{name: "user deletes tasks", role: RoleUser, permission: PermissionDeleteTask, want: true},
		{name: "user cannot list all", role: RoleUser, permission: PermissionListAllTasks, want: false},
		{name: "admin lists all", role: RoleAdmin, permission: PermissionListAllTasks, want: true},
		{name: "unknown role", role: "guest", permission: PermissionReadTask, want: false},
		{name: "unknown permission", role: RoleAdmin, permission: "task:explode", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission))
		})
	}
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(1, RoleAdmin, PermissionListAllTasks))

	err := CheckPermission(7, RoleUser, PermissionListAllTasks)
	var denied *PermissionDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, 7, denied.UserID)
	assert.Equal(t, PermissionListAllTasks, denied.Permission)
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, NormalizeRole(RoleAdmin))
	assert.Equal(t, RoleUser, NormalizeRole(""))
	assert.Equal(t, RoleUser, NormalizeRole("superuser"))
}

func TestCheckOwner(t *testing.T) {
	assert.NoError(t, CheckOwner(3, 3))

	err := CheckOwner(4, 3)
	var ownership *OwnershipError
	require.True(t, errors.As(err, &ownership))
	assert.Equal(t, 4, ownership.RequesterID)
	assert.Equal(t, 3, ownership.OwnerID)
}
