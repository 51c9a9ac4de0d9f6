package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goauction/internal/domain"
)

func TestHTTPVerifierSendsListingAndDecodesVerdict(t *testing.T) {
	var got struct {
		Media       json.RawMessage `json:"media"`
		Description string          `json:"description"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"approved":false,"message":"blurry photo","details":{"image":1}}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second)
	result, err := v.Verify(context.Background(), domain.ImageMedia("img-1"), "vintage camera")
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, "blurry photo", result.Message)
	assert.Equal(t, map[string]any{"image": float64(1)}, result.Details)
	assert.Equal(t, "vintage camera", got.Description)
	assert.JSONEq(t, `{"kind":"image","images":["img-1"]}`, string(got.Media))
}

func TestHTTPVerifierServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second)
	_, err := v.Verify(context.Background(), domain.VideoMedia("vid-1"), "desc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPVerifierMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second)
	_, err := v.Verify(context.Background(), domain.Media{}, "desc")
	assert.Error(t, err)
}

func TestHTTPVerifierHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v := NewHTTPVerifier(srv.URL, 5*time.Second)
	_, err := v.Verify(ctx, domain.Media{}, "desc")
	assert.Error(t, err)
}

func TestApproveAll(t *testing.T) {
	result, err := NewApproveAll().Verify(context.Background(), domain.Media{}, "")
	require.NoError(t, err)
	assert.True(t, result.Approved)
}
