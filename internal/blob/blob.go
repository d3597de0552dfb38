// Package blob defines where settlement reports are written.
package blob

import (
	"context"
	"io"
)

// Writer stores an object under path.
type Writer interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
