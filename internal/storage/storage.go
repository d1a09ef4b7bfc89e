// Package storage persists receipt attachments for payment requests, either
// on the local filesystem or in S3.
package storage

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Storage interface {
	// StoreReceipt saves a receipt file and returns its storage key.
	StoreReceipt(ctx context.Context, userID uuid.UUID, requestID uuid.UUID, filename string, content io.Reader, contentType string) (string, error)

	// Retrieve opens a stored file by key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a stored file; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link for downloading the file: a presigned URL for S3,
	// a server-relative path for local storage.
	URL(ctx context.Context, key string, expiration time.Duration) (string, error)

	// Exists reports whether the key has a stored file.
	Exists(ctx context.Context, key string) (bool, error)
}

// receiptKey lays receipts out as user/request/uuid_filename so one request
// can carry multiple uploads without collisions.
func receiptKey(userID uuid.UUID, requestID uuid.UUID, filename string) string {
	return userID.String() + "/" + requestID.String() + "/" + uuid.New().String() + "_" + sanitizeFilename(filename)
}

var unsafeFilenameChars = []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"}

func sanitizeFilename(filename string) string {
	for _, c := range unsafeFilenameChars {
		filename = strings.ReplaceAll(filename, c, "_")
	}
	return filename
}
