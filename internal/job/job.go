// Package job defines the unit-of-work contract the dispatcher runs, along
// with the registry of named job kinds and the builtin kinds the server ships
// with. A Body never sees the execution store; it receives its input, does its
// work, and reports exactly one outcome by returning.
package job

import (
	"context"
	"encoding/json"
)

// Body is a caller-supplied unit of work. It receives the id of the execution
// it runs under and the submitted input payload, and returns either a JSON
// result or an error. The dispatcher translates the return into the
// execution's terminal status.
type Body func(ctx context.Context, id string, input json.RawMessage) (json.RawMessage, error)
