package domain

import (
	"maps"
	"strings"
)

// UserFields carries the values used to construct a User.
type UserFields struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
	ScheduleIDs    []string
	Preferences    map[string]string
}

// User is an account that belongs to schedules. Schedules are referenced by
// id only; the registries resolve them.
type User struct {
	subject

	id             string
	username       string
	email          string
	hashedPassword string
	scheduleIDs    []string
	preferences    map[string]string

	// elementCache holds element ids reachable through the user's schedules.
	// It is materialized on demand and never persisted.
	elementCache []string
	cacheLoaded  bool
}

// NewUser validates the fields and returns a detached User.
func NewUser(fields UserFields) (*User, error) {
	vErr := &ValidationError{}
	validateID("id", fields.ID, vErr)
	validateRequired("username", fields.Username, vErr)
	validateRequired("email", fields.Email, vErr)
	validateIDList("schedule_ids", fields.ScheduleIDs, false, vErr)
	if err := vErr.errOrNil(); err != nil {
		return nil, err
	}

	prefs := make(map[string]string, len(fields.Preferences))
	maps.Copy(prefs, fields.Preferences)

	return &User{
		id:             fields.ID,
		username:       strings.TrimSpace(fields.Username),
		email:          strings.TrimSpace(fields.Email),
		hashedPassword: fields.HashedPassword,
		scheduleIDs:    uniqueStrings(fields.ScheduleIDs),
		preferences:    prefs,
	}, nil
}

// EntityID implements Entity.
func (u *User) EntityID() string { return u.id }

// ID returns the user id.
func (u *User) ID() string { return u.id }

// Username returns the trimmed username.
func (u *User) Username() string { return u.username }

// Email returns the trimmed email address.
func (u *User) Email() string { return u.email }

// HashedPassword returns the stored password hash.
func (u *User) HashedPassword() string { return u.hashedPassword }

// ScheduleIDs returns a copy of the ids of the schedules the user belongs to.
func (u *User) ScheduleIDs() []string { return cloneStrings(u.scheduleIDs) }

// BelongsTo reports whether the user lists the schedule.
func (u *User) BelongsTo(scheduleID string) bool {
	return containsString(u.scheduleIDs, scheduleID)
}

// Preferences returns a copy of the user's preferences.
func (u *User) Preferences() map[string]string {
	out := make(map[string]string, len(u.preferences))
	maps.Copy(out, u.preferences)
	return out
}

// Preference returns a single preference value.
func (u *User) Preference(key string) (string, bool) {
	value, ok := u.preferences[key]
	return value, ok
}

// SetUsername replaces the username.
func (u *User) SetUsername(username string) error {
	vErr := &ValidationError{}
	validateRequired("username", username, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	u.username = strings.TrimSpace(username)
	return u.notify(u)
}

// SetEmail replaces the email address.
func (u *User) SetEmail(email string) error {
	vErr := &ValidationError{}
	validateRequired("email", email, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	u.email = strings.TrimSpace(email)
	return u.notify(u)
}

// SetHashedPassword replaces the stored password hash.
func (u *User) SetHashedPassword(hash string) error {
	vErr := &ValidationError{}
	validateRequired("hashed_password", hash, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	u.hashedPassword = hash
	return u.notify(u)
}

// SetPreference stores a preference value.
func (u *User) SetPreference(key, value string) error {
	vErr := &ValidationError{}
	validateRequired("preference", key, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	u.preferences[key] = value
	return u.notify(u)
}

// AddSchedule appends a schedule id. Adding a listed id does nothing.
func (u *User) AddSchedule(scheduleID string) error {
	vErr := &ValidationError{}
	validateID("schedule_id", scheduleID, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	if containsString(u.scheduleIDs, scheduleID) {
		return nil
	}
	u.scheduleIDs = append(u.scheduleIDs, scheduleID)
	u.ResetElementCache()
	return u.notify(u)
}

// RemoveSchedule drops a schedule id. Removing an unlisted id does nothing.
func (u *User) RemoveSchedule(scheduleID string) error {
	updated, removed := removeString(u.scheduleIDs, scheduleID)
	if !removed {
		return nil
	}
	u.scheduleIDs = updated
	u.ResetElementCache()
	return u.notify(u)
}

// ElementCache returns the materialized element ids and whether the cache is loaded.
func (u *User) ElementCache() ([]string, bool) {
	if !u.cacheLoaded {
		return nil, false
	}
	return cloneStrings(u.elementCache), true
}

// CacheElements materializes the element ids reachable by the user.
func (u *User) CacheElements(ids []string) {
	u.elementCache = uniqueStrings(ids)
	u.cacheLoaded = true
}

// RememberElement adds an element id to a loaded cache.
func (u *User) RememberElement(id string) {
	if !u.cacheLoaded || containsString(u.elementCache, id) {
		return
	}
	u.elementCache = append(u.elementCache, id)
}

// ForgetElement strips an element id from the cache.
func (u *User) ForgetElement(id string) {
	if !u.cacheLoaded {
		return
	}
	u.elementCache, _ = removeString(u.elementCache, id)
}

// ResetElementCache discards the materialized element ids.
func (u *User) ResetElementCache() {
	u.elementCache = nil
	u.cacheLoaded = false
}

// ToRecord implements Entity.
func (u *User) ToRecord() Record {
	prefs := make(map[string]string, len(u.preferences))
	maps.Copy(prefs, u.preferences)
	return Record{
		"id":              u.id,
		"username":        u.username,
		"email":           u.email,
		"hashed_password": u.hashedPassword,
		"schedule_ids":    cloneStrings(u.scheduleIDs),
		"preferences":     prefs,
	}
}
