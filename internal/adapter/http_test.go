// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDeviceID = "0198c3ac-7df2-7cc0-8a6d-0242ac12dd01"
	testSignKey  = "testsignkey"
	testIssuer   = "go-life-tracker"
	testHashKey  = "testhashkey"
)

// newTestTransport создаёт httpRemoteTransport, направленный на тестовый сервер
func newTestTransport(t *testing.T, serverURL string) *httpRemoteTransport {
	t.Helper()
	log := logger.NewClientLogger("test")
	adapterCfg := config.ClientAdapter{HTTPAddress: serverURL}
	appCfg := config.ClientApp{
		TokenSignKey:  testSignKey,
		TokenIssuer:   testIssuer,
		TokenDuration: time.Hour,
		HashKey:       testHashKey,
	}

	transport, err := NewHTTPRemoteTransport(adapterCfg, appCfg, testDeviceID, log)
	require.NoError(t, err)
	return transport.(*httpRemoteTransport)
}

// ── ListMetadata ─────────────────────────────────────────────────────────────

func TestListMetadata_Success(t *testing.T) {
	want := models.MetadataListResponse{
		Items: []models.SyncMetadata{
			{Path: "tasks/" + testDeviceID + ".json", Size: 421, Hash: "abc123"},
			{Path: "accounts/" + testDeviceID + ".json", Size: 230, Hash: "def456"},
		},
		Length: 2,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/blobs/", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	got, err := a.ListMetadata(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want.Items[0].Path, got[0].Path)
	assert.Equal(t, want.Items[0].Hash, got[0].Hash)
	assert.Equal(t, want.Items[1].Size, got[1].Size)
}

func TestListMetadata_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token is expired"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.ListMetadata(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrPermanent)
}

// ── Get ──────────────────────────────────────────────────────────────────────

func TestGet_Success(t *testing.T) {
	blob := []byte("sealed-blob-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/blobs/tasks/"+testDeviceID+".json", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	got, err := a.Get(context.Background(), "tasks/"+testDeviceID+".json")

	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestGet_IntegrityHashMatches(t *testing.T) {
	blob := []byte("sealed-blob-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(models.IntegrityHashHeader, utils.HashBytesKeyed(blob, testHashKey))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	got, err := a.Get(context.Background(), "tasks/abc.json")

	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestGet_IntegrityHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(models.IntegrityHashHeader, "deadbeef")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("sealed-blob-bytes"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.Get(context.Background(), "tasks/abc.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Contains(t, err.Error(), "integrity hash mismatch")
}

func TestGet_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("artifact not found"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.Get(context.Background(), "tasks/missing.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestGet_BadGatewayIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream failed"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.Get(context.Background(), "tasks/abc.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadGateway)
	assert.ErrorIs(t, err, ErrTransient)
}

// ── Put ──────────────────────────────────────────────────────────────────────

func TestPut_Success(t *testing.T) {
	blob := []byte("sealed-blob-bytes")
	entityHash := "a1b2c3"
	stored := models.SyncMetadata{
		Path:     "tasks/" + testDeviceID + ".json",
		Size:     int64(len(blob)),
		Modified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Hash:     entityHash,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/blobs/tasks/"+testDeviceID+".json", r.URL.Path)
		assert.Equal(t, entityHash, r.Header.Get(models.EntityHashHeader))
		assert.Equal(t, utils.HashBytesKeyed(blob, testHashKey), r.Header.Get(models.IntegrityHashHeader))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(stored)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	meta, err := a.Put(context.Background(), "tasks/"+testDeviceID+".json", blob, entityHash)

	require.NoError(t, err)
	assert.Equal(t, stored.Path, meta.Path)
	assert.Equal(t, stored.Size, meta.Size)
	assert.True(t, stored.Modified.Equal(meta.Modified))
	assert.Equal(t, stored.Hash, meta.Hash)
}

func TestPut_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("version conflict"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.Put(context.Background(), "tasks/abc.json", []byte("blob"), "a1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestPut_InternalServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	_, err := a.Put(context.Background(), "tasks/abc.json", []byte("blob"), "a1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternalServerError)
	assert.ErrorIs(t, err, ErrTransient)
}

// ── Delete ───────────────────────────────────────────────────────────────────

func TestDelete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/blobs/tasks/"+testDeviceID+".json", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	err := a.Delete(context.Background(), "tasks/"+testDeviceID+".json")

	require.NoError(t, err)
}

func TestDelete_MissingArtifactIsNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("artifact not found"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	err := a.Delete(context.Background(), "tasks/gone.json")

	require.NoError(t, err)
}

func TestDelete_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("access denied"))
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	err := a.Delete(context.Background(), "tasks/abc.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrPermanent)
}

// ── device token ─────────────────────────────────────────────────────────────

func TestRequests_CarryMintedDeviceToken(t *testing.T) {
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	err := a.Delete(context.Background(), "tasks/abc.json")
	require.NoError(t, err)

	tokenString, err := utils.ParseBearerToken(authHeader)
	require.NoError(t, err)

	token, err := utils.ValidateAndParseJWTToken(tokenString, testSignKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, testDeviceID, token.DeviceID)
	assert.NotEmpty(t, a.Token())
}

func TestRequests_UnauthenticatedWithoutSignKey(t *testing.T) {
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport, err := NewHTTPRemoteTransport(
		config.ClientAdapter{HTTPAddress: srv.URL},
		config.ClientApp{},
		testDeviceID,
		logger.NewClientLogger("test"),
	)
	require.NoError(t, err)

	err = transport.Delete(context.Background(), "tasks/abc.json")
	require.NoError(t, err)
	assert.Empty(t, authHeader)
}

func TestSetToken_OverridesMinting(t *testing.T) {
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestTransport(t, srv.URL)
	a.SetToken("  pre-issued-token ")

	err := a.Delete(context.Background(), "tasks/abc.json")
	require.NoError(t, err)
	assert.Equal(t, "Bearer pre-issued-token", authHeader)
	assert.Equal(t, "pre-issued-token", a.Token())
}

// ── normalizeBaseURL ─────────────────────────────────────────────────────────

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid http", "http://localhost:8080", "http://localhost:8080", false},
		{"no scheme", "localhost:8080", "http://localhost:8080", false},
		{"trailing slash", "http://localhost:8080/", "http://localhost:8080", false},
		{"empty", "", "", true},
		{"no host", "http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// ── error classification ─────────────────────────────────────────────────────

func TestMapHTTPError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantIs    error
		transient bool
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, false},
		{"forbidden", http.StatusForbidden, ErrForbidden, false},
		{"not found", http.StatusNotFound, ErrNotFound, false},
		{"conflict", http.StatusConflict, ErrConflict, false},
		{"too many requests", http.StatusTooManyRequests, ErrTransient, true},
		{"internal server error", http.StatusInternalServerError, ErrInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, ErrBadGateway, true},
		{"service unavailable", http.StatusServiceUnavailable, ErrTransient, true},
		{"teapot", http.StatusTeapot, ErrPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("boom"))
			}))
			defer srv.Close()

			a := newTestTransport(t, srv.URL)
			_, err := a.Get(context.Background(), "tasks/abc.json")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.transient, errors.Is(err, ErrTransient))
		})
	}
}
