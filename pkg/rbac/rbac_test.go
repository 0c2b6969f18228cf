package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleUser, PermissionPostCreate))
	assert.False(t, HasPermission(RoleUser, PermissionPostDeleteAny))
	assert.True(t, HasPermission(RoleAdmin, PermissionPostDeleteAny))
	assert.True(t, HasPermission("", PermissionGoalWrite))
	assert.False(t, HasPermission("root", PermissionOutboxReplay))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission("u1", RoleAdmin, PermissionOutboxReplay))

	err := CheckPermission("u1", RoleUser, PermissionOutboxReplay)
	var denied *PermissionDeniedError
	if assert.True(t, errors.As(err, &denied)) {
		assert.Equal(t, "u1", denied.UserID)
		assert.Equal(t, PermissionOutboxReplay, denied.Permission)
	}
}
