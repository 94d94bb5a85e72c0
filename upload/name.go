package upload

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// newStorageName generates a collision-resistant storage name: 32
// lowercase hex characters from a random (crypto/rand backed) UUID,
// followed by the validated extension. The result never contains path
// separators and shares nothing with the client-supplied filename.
func newStorageName(ext string) string {
	id := uuid.New()
	return hex.EncodeToString(id[:]) + ext
}
