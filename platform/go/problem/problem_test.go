package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteProblem(t *testing.T) {
	detail := "listing is still being processed"
	kind := TypeConflict
	rec := httptest.NewRecorder()

	Write(rec, Details{Title: "Conflict", Status: http.StatusConflict, Detail: &detail, Type: &kind})

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, ContentType, rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Conflict", body["title"])
	require.Equal(t, detail, body["detail"])
	require.NotContains(t, body, "errors")
}

func TestWriteJSONWithoutBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusNoContent, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
}
