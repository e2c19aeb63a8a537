// Package blob holds object-storage backed content stores.
package blob

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectKey maps a content id onto an object name. A prefix without a
// trailing slash is treated as a directory.
func objectKey(prefix string, id primitive.ObjectID) string {
	if prefix == "" {
		return id.Hex()
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + id.Hex()
}
