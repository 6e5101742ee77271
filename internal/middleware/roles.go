package middleware

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Roles recognised by the API.
const (
	RoleAdmin     = "admin"
	RoleBedel     = "bedel"
	RoleSecretary = "secretary"
	RoleStudent   = "student"
)

// StaffRoles may act on any student's record.
var StaffRoles = []string{RoleAdmin, RoleBedel, RoleSecretary}

const actorLocalsKey = "actor"

// RoleSet is the normalised set of roles carried by a token.
type RoleSet map[string]struct{}

// NewRoleSet lower-cases and deduplicates roles, ignoring blanks.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// Has reports whether any of the roles is present.
func (s RoleSet) Has(roles ...string) bool {
	for _, role := range roles {
		if _, ok := s[strings.ToLower(role)]; ok {
			return true
		}
	}
	return false
}

// IsStaff reports whether the set holds a staff role.
func (s RoleSet) IsStaff() bool {
	return s.Has(StaffRoles...)
}

// Primary returns the most privileged role, used as the audit label.
func (s RoleSet) Primary() string {
	for _, role := range append(append([]string{}, StaffRoles...), RoleStudent) {
		if s.Has(role) {
			return role
		}
	}
	list := s.List()
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// List returns the roles sorted alphabetically.
func (s RoleSet) List() []string {
	list := make([]string, 0, len(s))
	for role := range s {
		list = append(list, role)
	}
	sort.Strings(list)
	return list
}

// Actor is the authenticated caller, resolved once per request and handed to services.
type Actor struct {
	UserID uint
	// StudentID links the caller to a student record; nil for staff accounts.
	StudentID *uint
	Roles     RoleSet
}

// IsStaff reports whether the actor may act on any student.
func (a Actor) IsStaff() bool {
	return a.Roles.IsStaff()
}

// CanActFor reports whether the actor may read or change the given student's record.
func (a Actor) CanActFor(studentID uint) bool {
	if a.IsStaff() {
		return true
	}
	return a.StudentID != nil && *a.StudentID == studentID
}

// SystemActor is used for internal calls that bypass per-student checks.
func SystemActor() Actor {
	return Actor{Roles: NewRoleSet(RoleAdmin)}
}

// SetActor stores the resolved actor on the request.
func SetActor(c *fiber.Ctx, actor Actor) {
	c.Locals(actorLocalsKey, actor)
	c.Locals("user_id", actor.UserID)
	c.Locals("user_role", actor.Roles.Primary())
}

// ActorFrom returns the actor bound to the request, if authentication ran.
func ActorFrom(c *fiber.Ctx) (Actor, bool) {
	actor, ok := c.Locals(actorLocalsKey).(Actor)
	return actor, ok
}
