package domain

// Role distinguishes the caller types that reach the core through the request layer.
type Role string

const (
	RolePlanner Role = "planner" // builds templates and libraries for subjects
	RoleSubject Role = "subject" // follows a plan and records what was done
)
