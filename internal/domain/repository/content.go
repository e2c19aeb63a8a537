package repository

import (
	"context"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentStore streams binary payloads addressed by a canonical content id.
type ContentStore interface {
	// Fetch verifies the id exists, then copies the payload into w.
	Fetch(ctx context.Context, id primitive.ObjectID, w io.Writer) (int64, error)
	Ping(ctx context.Context) error
}
