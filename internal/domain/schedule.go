package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Role is the permission a user holds on a schedule.
type Role string

const (
	// RoleOwner may change permissions and delete the schedule.
	RoleOwner Role = "owner"
	// RoleWrite may add and remove elements.
	RoleWrite Role = "write"
	// RoleRead may only view elements.
	RoleRead Role = "read"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", NewValidationError("role", fmt.Sprintf("unknown role %q", value))
	}
	return role, nil
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleWrite, RoleRead:
		return true
	}
	return false
}

// CanWrite reports whether the role allows element changes.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleWrite
}

// ScheduleFields carries the values used to construct a Schedule.
type ScheduleFields struct {
	ID          string
	Title       string
	Description *string
	Permissions map[string]Role
	ElementIDs  []string
}

// Schedule is a titled, permissioned collection of elements. Elements and
// users are referenced by id only.
type Schedule struct {
	subject

	id          string
	title       string
	description *string
	permissions map[string]Role
	elementIDs  []string
}

// NewSchedule validates the fields and returns a detached Schedule.
func NewSchedule(fields ScheduleFields) (*Schedule, error) {
	vErr := &ValidationError{}
	validateID("id", fields.ID, vErr)
	validateTitle(fields.Title, vErr)
	validateDescription(fields.Description, vErr)
	validatePermissions(fields.Permissions, vErr)
	validateIDList("element_ids", fields.ElementIDs, false, vErr)
	if err := vErr.errOrNil(); err != nil {
		return nil, err
	}

	perms := make(map[string]Role, len(fields.Permissions))
	for userID, role := range fields.Permissions {
		perms[userID] = role
	}

	return &Schedule{
		id:          fields.ID,
		title:       strings.TrimSpace(fields.Title),
		description: cloneDescription(fields.Description),
		permissions: perms,
		elementIDs:  uniqueStrings(fields.ElementIDs),
	}, nil
}

func validatePermissions(perms map[string]Role, vErr *ValidationError) {
	if len(perms) == 0 {
		vErr.Add("permissions", "at least one permission is required")
		return
	}
	for userID, role := range perms {
		if strings.TrimSpace(userID) == "" {
			vErr.Add("permissions", "user ids must not be blank")
			return
		}
		if !role.Valid() {
			vErr.Add("permissions", fmt.Sprintf("unknown role %q for user %s", role, userID))
			return
		}
	}
}

// EntityID implements Entity.
func (s *Schedule) EntityID() string { return s.id }

// ID returns the schedule id.
func (s *Schedule) ID() string { return s.id }

// Title returns the trimmed title.
func (s *Schedule) Title() string { return s.title }

// Description returns the optional description.
func (s *Schedule) Description() *string { return cloneDescription(s.description) }

// Permissions returns a copy of the user id to role mapping.
func (s *Schedule) Permissions() map[string]Role {
	out := make(map[string]Role, len(s.permissions))
	for userID, role := range s.permissions {
		out[userID] = role
	}
	return out
}

// MemberIDs returns the ids of users holding any role, sorted.
func (s *Schedule) MemberIDs() []string {
	ids := make([]string, 0, len(s.permissions))
	for userID := range s.permissions {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

// RoleOf returns the role a user holds.
func (s *Schedule) RoleOf(userID string) (Role, bool) {
	role, ok := s.permissions[userID]
	return role, ok
}

// Successor returns the member who takes over ownership when userID leaves.
// It reports false unless userID is the only owner and other members remain.
// Writers are preferred over readers; ties go to the smallest id.
func (s *Schedule) Successor(userID string) (string, bool) {
	if s.permissions[userID] != RoleOwner {
		return "", false
	}
	heir, heirRole := "", Role("")
	for _, memberID := range s.MemberIDs() {
		if memberID == userID {
			continue
		}
		role := s.permissions[memberID]
		if role == RoleOwner {
			return "", false
		}
		if heir == "" || (role == RoleWrite && heirRole != RoleWrite) {
			heir, heirRole = memberID, role
		}
	}
	return heir, heir != ""
}

// ElementIDs returns a copy of the attached element ids in insertion order.
func (s *Schedule) ElementIDs() []string { return cloneStrings(s.elementIDs) }

// HasElement reports whether the element id is attached.
func (s *Schedule) HasElement(elementID string) bool {
	return containsString(s.elementIDs, elementID)
}

// SetTitle replaces the title.
func (s *Schedule) SetTitle(title string) error {
	vErr := &ValidationError{}
	validateTitle(title, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	s.title = strings.TrimSpace(title)
	return s.notify(s)
}

// SetDescription replaces the description. nil clears it.
func (s *Schedule) SetDescription(description *string) error {
	vErr := &ValidationError{}
	validateDescription(description, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	s.description = cloneDescription(description)
	return s.notify(s)
}

// Grant gives a user a role, replacing any previous role.
func (s *Schedule) Grant(userID string, role Role) error {
	vErr := &ValidationError{}
	validateID("user_id", userID, vErr)
	if !role.Valid() {
		vErr.Add("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	if current, ok := s.permissions[userID]; ok && current == role {
		return nil
	}
	s.permissions[userID] = role
	return s.notify(s)
}

// Revoke removes a user's role. The last permission cannot be revoked.
func (s *Schedule) Revoke(userID string) error {
	if _, ok := s.permissions[userID]; !ok {
		return nil
	}
	if len(s.permissions) == 1 {
		return NewValidationError("permissions", "at least one permission is required")
	}
	delete(s.permissions, userID)
	return s.notify(s)
}

// AddElement attaches an element id. Attaching a listed id does nothing.
func (s *Schedule) AddElement(elementID string) error {
	vErr := &ValidationError{}
	validateID("element_id", elementID, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	if containsString(s.elementIDs, elementID) {
		return nil
	}
	s.elementIDs = append(s.elementIDs, elementID)
	return s.notify(s)
}

// RemoveElement detaches an element id. Detaching an unlisted id does nothing.
func (s *Schedule) RemoveElement(elementID string) error {
	updated, removed := removeString(s.elementIDs, elementID)
	if !removed {
		return nil
	}
	s.elementIDs = updated
	return s.notify(s)
}

// ToRecord implements Entity.
func (s *Schedule) ToRecord() Record {
	perms := make(map[string]string, len(s.permissions))
	for userID, role := range s.permissions {
		perms[userID] = string(role)
	}
	return Record{
		"id":          s.id,
		"title":       s.title,
		"description": descriptionValue(s.description),
		"permissions": perms,
		"element_ids": cloneStrings(s.elementIDs),
	}
}
