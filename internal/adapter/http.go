package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
	"github.com/go-resty/resty/v2"
)

// blobRoute is the route prefix of the blob server's artifact endpoints.
// Listing lives at the prefix itself; individual artifacts are addressed
// by appending their canonical entity path.
const blobRoute = "/api/blobs/"

// tokenRefreshMargin forces a re-mint slightly before the device token
// expires so an in-flight request never carries a token that lapses
// mid-request.
const tokenRefreshMargin = 30 * time.Second

type httpRemoteTransport struct {
	client *utils.HTTPClient

	deviceID string
	hashKey  string
	appCfg   config.ClientApp

	mu       sync.RWMutex
	token    string
	tokenExp time.Time

	logger *logger.Logger
}

// NewHTTPRemoteTransport constructs an HTTP/REST implementation of
// [RemoteTransport] talking to the bundled blob server. It normalises and
// validates the base URL from adapterCfg.HTTPAddress and configures the
// underlying HTTP client with the resolved base URL and request timeout.
//
// deviceID becomes the subject of the self-issued device token attached
// to every request. Token minting is skipped entirely when
// appCfg.TokenSignKey is empty, which leaves requests unauthenticated for
// servers that run without auth.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed
// as a valid URL.
func NewHTTPRemoteTransport(adapterCfg config.ClientAdapter, appCfg config.ClientApp, deviceID string, logger *logger.Logger) (RemoteTransport, error) {
	client := utils.NewHTTPClient()
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client.
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout)

	return &httpRemoteTransport{
		client:   client,
		deviceID: deviceID,
		hashKey:  appCfg.HashKey,
		appCfg:   appCfg,
		logger:   logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken stores a pre-issued bearer token (whitespace-trimmed) for use
// in the Authorization header of all subsequent requests. Tokens set this
// way are kept as-is and never re-minted.
func (h *httpRemoteTransport) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
	h.tokenExp = time.Time{}
}

// Token returns the bearer token currently held by the transport, or an
// empty string if none has been set or minted yet.
func (h *httpRemoteTransport) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// ensureToken returns a bearer token valid for at least tokenRefreshMargin,
// minting a fresh device token when the held one is absent or about to
// expire. A zero expiry marks an externally supplied token that is never
// re-minted.
func (h *httpRemoteTransport) ensureToken() (string, error) {
	h.mu.RLock()
	token, exp := h.token, h.tokenExp
	h.mu.RUnlock()

	if token != "" && (exp.IsZero() || time.Until(exp) > tokenRefreshMargin) {
		return token, nil
	}
	if h.appCfg.TokenSignKey == "" {
		return token, nil
	}

	minted, err := utils.GenerateJWTToken(h.appCfg.TokenIssuer, h.deviceID, h.appCfg.TokenDuration, h.appCfg.TokenSignKey)
	if err != nil {
		return "", fmt.Errorf("mint device token: %w", err)
	}

	h.mu.Lock()
	h.token = minted.SignedString
	h.tokenExp = time.Now().Add(h.appCfg.TokenDuration)
	h.mu.Unlock()

	return minted.SignedString, nil
}

func (h *httpRemoteTransport) authedRequest(ctx context.Context) (*resty.Request, error) {
	token, err := h.ensureToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPermanent, err)
	}

	req := h.client.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req, nil
}

// ListMetadata implements [RemoteTransport]. It GETs the artifact listing
// from GET /api/blobs/ and returns the decoded descriptors. The blob
// server includes the entity content hash recorded at upload time, so a
// listing is sufficient for incremental comparison without downloading
// any blobs.
func (h *httpRemoteTransport) ListMetadata(ctx context.Context) ([]models.SyncMetadata, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(blobRoute)
	if err != nil {
		return nil, fmt.Errorf("%w: list metadata request: %w", ErrTransient, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var listing models.MetadataListResponse
	if err = json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("%w: decode metadata listing: %w", ErrPermanent, err)
	}

	return listing.Items, nil
}

// Get implements [RemoteTransport]. It downloads the raw blob from
// GET /api/blobs/<path>. When the server attaches a keyed integrity hash
// to the response it is verified against the body before the blob is
// returned.
func (h *httpRemoteTransport) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(blobRoute + path)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrTransient, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	blob := resp.Body()
	if err = h.verifyIntegrity(resp, blob); err != nil {
		return nil, err
	}

	return blob, nil
}

// Put implements [RemoteTransport]. It uploads the blob via
// PUT /api/blobs/<path> with the entity content hash in the X-Entity-Hash
// header so the server can index it for listings. A keyed integrity hash
// over the body is attached when a hash key is configured. The server
// responds with the stored artifact's metadata, which is returned
// verbatim.
func (h *httpRemoteTransport) Put(ctx context.Context, path string, blob []byte, hash string) (models.SyncMetadata, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return models.SyncMetadata{}, err
	}

	req.
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader(models.EntityHashHeader, hash).
		SetBody(blob)
	if h.hashKey != "" {
		req.SetHeader(models.IntegrityHashHeader, utils.HashBytesKeyed(blob, h.hashKey))
	}

	resp, err := req.Put(blobRoute + path)
	if err != nil {
		return models.SyncMetadata{}, fmt.Errorf("%w: put %s: %w", ErrTransient, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SyncMetadata{}, err
	}

	var meta models.SyncMetadata
	if err = json.Unmarshal(resp.Body(), &meta); err != nil {
		return models.SyncMetadata{}, fmt.Errorf("%w: decode stored metadata: %w", ErrPermanent, err)
	}

	return meta, nil
}

// Delete implements [RemoteTransport]. It removes the artifact via
// DELETE /api/blobs/<path>. A 404 from the server is treated as success
// so repeated deletes of the same artifact stay idempotent.
func (h *httpRemoteTransport) Delete(ctx context.Context, path string) error {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete(blobRoute + path)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrTransient, path, err)
	}

	if err = mapHTTPError(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.logger.Debug().Str("func", "httpRemoteTransport.Delete").Str("path", path).Msg("artifact already absent")
			return nil
		}
		return err
	}
	return nil
}

// verifyIntegrity checks the keyed hash header of a response against its
// body. Responses without the header pass unchecked so servers that do
// not hash stay usable.
func (h *httpRemoteTransport) verifyIntegrity(resp *resty.Response, blob []byte) error {
	if h.hashKey == "" {
		return nil
	}
	got := resp.Header().Get(models.IntegrityHashHeader)
	if got == "" {
		return nil
	}
	if want := utils.HashBytesKeyed(blob, h.hashKey); got != want {
		return fmt.Errorf("%w: integrity hash mismatch for response body", ErrPermanent)
	}
	return nil
}
