package port

import (
	"context"
	"io"
)

type ResultArchive interface {
	UploadArchive(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
