package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"exam:view",
		"exam:take",
		"attempt:view-own",
		"submission:create",
		"submission:view-own",
		"profile:*",
		"scores:view",
	},
	RoleTeacher: {
		"exam:view",
		"exam:view-answers",
		"exam:create",
		"attempt:view-all",
		"submission:view-all",
		"submission:grade",
		"profile:*",
		"scores:view",
	},
	RoleAdmin: {
		"*", // everything
	},
}

// ValidRole reports whether role has an entry in the default policy.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
