package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/modelo347/testing"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{fmt.Errorf("exercise 1999: %w", ErrNotFound), http.StatusNotFound, "exercise 1999: resource not found"},
		{fmt.Errorf("grouping: %w", ErrValidation), http.StatusBadRequest, "grouping: validation failed"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code)
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
		require.Equal(t, tc.detail, body.Detail)
	}
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/plain; charset=ISO-8859-1", "model-347.txt", true)
	require.Equal(t, `attachment; filename="model-347.txt"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	require.Equal(t, "0", rec.Header().Get("Expires"))

	rec = httptest.NewRecorder()
	Attachment(rec, "application/pdf", "model-347.pdf", false)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Header().Get("Pragma"))
}
