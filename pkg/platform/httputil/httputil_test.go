package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "organchain/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		describe bool
	}{
		{"validation", dErrors.New(dErrors.CodeValidation, "age must be between 0 and 150"), http.StatusBadRequest, "validation_error", true},
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "invalid json payload"), http.StatusBadRequest, "bad_request", true},
		{"missing profile", dErrors.New(dErrors.CodeNotFound, "donor not found"), http.StatusNotFound, "not_found", true},
		{"duplicate profile", dErrors.New(dErrors.CodeAlreadyExists, "donor already exists"), http.StatusConflict, "conflict", true},
		{"no token", dErrors.New(dErrors.CodeUnauthorized, "bearer token required"), http.StatusUnauthorized, "unauthorized", true},
		{"other identity", dErrors.New(dErrors.CodeForbidden, "token does not own this record"), http.StatusForbidden, "forbidden", true},
		{"store down", dErrors.New(dErrors.CodeUnavailable, "database unavailable"), http.StatusServiceUnavailable, "unavailable", true},
		{"internal hides detail", dErrors.New(dErrors.CodeInternal, "db failed"), http.StatusInternalServerError, "internal_error", false},
		{"uncoded error is internal", assert.AnError, http.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body["error"])
			desc, ok := body["error_description"]
			assert.Equal(t, tt.describe, ok)
			if tt.describe {
				assert.Equal(t, dErrors.Reason(tt.err), desc)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/donors", strings.NewReader(`{"name":"Ada"}`))
		var got body
		require.NoError(t, DecodeJSON(r, &got))
		assert.Equal(t, "Ada", got.Name)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/donors", strings.NewReader(`{"nmae":"Ada"}`))
		var got body
		err := DecodeJSON(r, &got)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/donors", strings.NewReader(`{"name":`))
		var got body
		assert.True(t, dErrors.HasCode(DecodeJSON(r, &got), dErrors.CodeBadRequest))
	})
}
