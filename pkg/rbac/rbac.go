package rbac

// 权限常量
const (
	PermissionReadTask   = "task:read"
	PermissionCreateTask = "task:create"
	PermissionUpdateTask = "task:update"
	PermissionDeleteTask = "task:delete"

	// 管理员权限
	PermissionListAllTasks = "task:list_all"

	PermissionChangePassword = "account:change_password"
)

// 角色常量
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadTask,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionDeleteTask,
		PermissionChangePassword,
	},
	RoleAdmin: {
		PermissionReadTask,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionDeleteTask,
		PermissionChangePassword,
		PermissionListAllTasks,
	},
}

// NormalizeRole maps an unknown or empty role to RoleUser.
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleUser
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查用户是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}

// CheckOwner 验证请求者是否为资源所有者
func CheckOwner(requesterID int, ownerID int) error {
	if requesterID != ownerID {
		return &OwnershipError{
			RequesterID: requesterID,
			OwnerID:     ownerID,
		}
	}
	return nil
}

// OwnershipError 表示请求者不是资源所有者
type OwnershipError struct {
	RequesterID int
	OwnerID     int
}

func (e *OwnershipError) Error() string {
	return "requester does not own the resource"
}
