package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/arcmed/arcmed_backend/internal/apperr"
)

func failStatus(t *testing.T, err error) (*http.Response, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/x", func(c fiber.Ctx) error { return fail(c, err) })

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, testErr)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestFailStatusByKind(t *testing.T) {
	cases := []struct {
		name   string
		kind   apperr.Kind
		status int
	}{
		{"invalid input", apperr.KindInvalidInput, http.StatusBadRequest},
		{"forbidden", apperr.KindForbidden, http.StatusForbidden},
		{"cold storage", apperr.KindColdStorage, http.StatusForbidden},
		{"locked", apperr.KindLocked, http.StatusForbidden},
		{"not found", apperr.KindNotFound, http.StatusNotFound},
		{"conflict", apperr.KindConflict, http.StatusConflict},
		{"quota", apperr.KindQuotaExceeded, http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := failStatus(t, apperr.New(tc.kind, tc.name))
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.name, body["error"])
		})
	}
}

func TestFailColdStorageCarriesRestoreState(t *testing.T) {
	err := apperr.New(apperr.KindColdStorage, "object is in cold storage").
		With("restore_state", "restoring")

	resp, body := failStatus(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "restoring", meta["restore_state"])
}

func TestFailLockedCarriesUnlockTime(t *testing.T) {
	err := apperr.New(apperr.KindLocked, "account locked").
		With("unlock_at", "2026-09-01T12:00:00Z")

	resp, body := failStatus(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2026-09-01T12:00:00Z", meta["unlock_at"])
}

func TestFailHidesInternalErrors(t *testing.T) {
	err := apperr.Newf(apperr.KindTransient, "bucket unreachable: %s", "secret-bucket")

	resp, body := failStatus(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal server error", body["error"])
}
