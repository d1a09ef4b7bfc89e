package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("storage: failed to create receipt directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// resolve joins key onto the base path and rejects anything that escapes it.
func (ls *LocalStorage) resolve(key string) (string, error) {
	absBase, err := filepath.Abs(ls.basePath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(ls.basePath, key))
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path traversal detected")
	}
	return absPath, nil
}

func (ls *LocalStorage) StoreReceipt(ctx context.Context, userID uuid.UUID, requestID uuid.UUID, filename string, content io.Reader, contentType string) (string, error) {
	key := receiptKey(userID, requestID, filename)

	fullPath, err := ls.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("storage: failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("storage: failed to write file: %w", err)
	}
	return key, nil
}

func (ls *LocalStorage) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: file not found")
		}
		return nil, fmt.Errorf("storage: failed to open file: %w", err)
	}
	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) URL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	// Served by the file route; local links do not expire.
	return "/files/" + key, nil
}

func (ls *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
