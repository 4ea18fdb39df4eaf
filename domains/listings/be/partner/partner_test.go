package partner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

func TestRejectionErrorMatchesOperationSentinel(t *testing.T) {
	err := error(&RejectionError{Op: OpUpdate, Platform: rental.PlatformOLX, StatusCode: 404, Message: "advert not found"})

	require.ErrorIs(t, err, ErrUpdateRejected)
	require.NotErrorIs(t, err, ErrPublishRejected)
	require.Contains(t, err.Error(), "advert not found")

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, 404, rejection.StatusCode)
}

func TestDoDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "x", body["title"])
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	t.Cleanup(srv.Close)

	var out struct {
		ID FlexibleID `json:"id"`
	}
	err := Do(context.Background(), srv.Client(), rental.PlatformOLX, Request{
		Op: OpPublish, Method: http.MethodPost, URL: srv.URL, Header: BearerHeader("tok"),
		Body: map[string]string{"title": "x"}, Out: &out,
	})
	require.NoError(t, err)
	require.Equal(t, FlexibleID("42"), out.ID)
}

func TestDoWrapsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"reason":"bad"}`))
	}))
	t.Cleanup(srv.Close)

	err := Do(context.Background(), srv.Client(), rental.PlatformOtodom, Request{
		Op: OpDelete, Method: http.MethodDelete, URL: srv.URL,
		Message: func([]byte) string { return "" },
	})
	require.ErrorIs(t, err, ErrDeleteRejected)

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, `{"reason":"bad"}`, rejection.Message)
}

func TestDoTimeoutIsRejection(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond

	err := Do(context.Background(), client, rental.PlatformOLX, Request{Op: OpPublish, Method: http.MethodGet, URL: srv.URL})
	require.ErrorIs(t, err, ErrPublishRejected)

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	require.Zero(t, rejection.StatusCode)
}

func TestFlexibleID(t *testing.T) {
	var ids []FlexibleID
	require.NoError(t, json.Unmarshal([]byte(`["abc", 123, null]`), &ids))
	require.Equal(t, []FlexibleID{"abc", "123", ""}, ids)
}

func TestFormatArea(t *testing.T) {
	require.Equal(t, "48.5", FormatArea(48.5))
	require.Equal(t, "50", FormatArea(50))
}
