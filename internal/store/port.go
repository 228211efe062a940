// Package store defines the storage port the registries persist through and
// the adapters and decorators that implement it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Collection names used by the registries.
const (
	Users     = "users"
	Schedules = "schedules"
	Elements  = "elements"
)

var (
	// ErrNotFound is returned when no record matches a filter.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when inserting a record whose id already exists.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrInvalidRecord is returned for records without a string id.
	ErrInvalidRecord = errors.New("store: invalid record")
	// ErrTimeout is returned when a call exceeds the configured deadline.
	ErrTimeout = errors.New("store: timeout")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("store: unavailable")
)

// Record is a plain string keyed document. Every record carries a string "id".
type Record map[string]any

// ID returns the record id.
func (r Record) ID() (string, error) {
	id, ok := r["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: missing string id", ErrInvalidRecord)
	}
	return id, nil
}

// Filter selects records whose fields equal every filter value. An empty
// filter selects every record in the collection.
type Filter map[string]any

// ByID returns a filter matching a single id.
func ByID(id string) Filter {
	return Filter{"id": id}
}

// IDOnly reports the id when the filter matches on nothing but the id.
// Adapters use it to push the lookup down to a keyed read.
func (f Filter) IDOnly() (string, bool) {
	if len(f) != 1 {
		return "", false
	}
	id, ok := f["id"].(string)
	return id, ok
}

// Match reports whether the record satisfies the filter.
func (f Filter) Match(r Record) bool {
	for key, want := range f {
		got, ok := r[key]
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(got, want any) bool {
	if gs, ok := got.(string); ok {
		ws, ok := want.(string)
		return ok && gs == ws
	}
	return reflect.DeepEqual(got, want)
}

// Port is the persistence contract consumed by the registries. Calls block
// until the underlying store answers or the context ends.
type Port interface {
	Select(ctx context.Context, collection string, filter Filter) ([]Record, error)
	Exists(ctx context.Context, collection string, filter Filter) (bool, error)
	Insert(ctx context.Context, collection string, record Record) error
	Update(ctx context.Context, collection string, filter Filter, record Record) error
	Delete(ctx context.Context, collection string, filter Filter) error
}

// Encode serializes a record into its JSON document form.
func Encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("store: encode record: %w", err)
	}
	return data, nil
}

// Decode parses a JSON document into a record.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("store: decode record: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidRecord)
	}
	return r, nil
}

// Clone deep copies a record through its document form.
func Clone(r Record) (Record, error) {
	data, err := Encode(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
