package models

// Roles
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Actor identifies the user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ActorID returns a pointer to the actor's id, or nil for system actions.
func ActorID(a *Actor) *uint {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

// Uint returns a pointer to v.
func Uint(v uint) *uint {
	return &v
}
