// Package storage holds the object-storage collaborator contract: accepted
// uploads are forwarded as their original bytes and come back as public URLs.
package storage

import "context"

// ObjectStore receives accepted upload bytes and returns a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}
