package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string for use as an execution identifier.
// ULIDs are lexicographically sortable by creation time, which keeps id
// ordering roughly aligned with created_at ordering.
func NewID() string {
	return ulid.Make().String()
}
