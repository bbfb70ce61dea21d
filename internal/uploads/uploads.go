// Package uploads stores the code files users attach to their requests, keyed
// by user. Disk backs development; S3-compatible object storage backs
// deployment.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the named file does not exist for the user.
var ErrNotFound = errors.New("uploaded file not found")

// Store persists uploaded files per user.
type Store interface {
	Put(ctx context.Context, userID, name string, content []byte) error
	Get(ctx context.Context, userID, name string) ([]byte, error)
	List(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, userID, name string) error
}

// cleanName rejects names that could escape the user's namespace.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return name, nil
}
