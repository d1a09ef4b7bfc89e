package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clubfunds/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileApp(t *testing.T) (*fiber.App, storage.Storage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := &Handler{files: store}
	app := fiber.New()
	app.Get("/files/*", func(c *fiber.Ctx) error {
		c.Locals("user_id", uuid.New())
		return c.Next()
	}, h.ServeFile)
	return app, store
}

// The URL handed out by the local backend must resolve to the stored bytes.
func TestServeFile_StreamsStoredReceipt(t *testing.T) {
	app, store := newFileApp(t)
	ctx := context.Background()

	key, err := store.StoreReceipt(ctx, uuid.New(), uuid.New(), "receipt.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	url, err := store.URL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/files/"))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestServeFile_MissingKey(t *testing.T) {
	app, _ := newFileApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/files/nope/missing.pdf", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
