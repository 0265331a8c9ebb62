package kg

import "errors"

var (
	// ErrUnknownNode indicates an edge endpoint that was never added.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidNode indicates a node with an empty type or ID.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidDirection indicates a traversal direction outside
	// {out, in, both}.
	ErrInvalidDirection = errors.New("invalid direction")
)
