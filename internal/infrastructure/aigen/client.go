// Package aigen wraps the text-generation provider used for product
// descriptions. It shares the provider retry policy with the geocoding
// gateway: back off on overload signals, fail fast on everything else.
package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/api/metrics"
	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/pkg/retry"
)

const defaultRequestTimeout = 30 * time.Second

// Client calls the text-generation provider.
type Client struct {
	baseURL  string
	settings ports.SettingsStore
	envKey   string
	retrier  *retry.Retrier
	httpc    *http.Client
	log      zerolog.Logger
}

// NewClient wires a Client. The settings store is consulted for the API
// key on every call, with envKey as the static fallback.
func NewClient(baseURL string, settings ports.SettingsStore, envKey string, retrier *retry.Retrier, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if retrier == nil {
		retrier = retry.New()
	}
	return &Client{
		baseURL:  baseURL,
		settings: settings,
		envKey:   envKey,
		retrier:  retrier,
		httpc:    &http.Client{Timeout: defaultRequestTimeout},
		log:      log,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces text for the prompt. Overload/unavailable signals are
// retried with exponential backoff; after exhaustion the caller gets the
// friendly retry.ErrBusy instead of the raw provider error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return "", err
	}

	started := time.Now()
	var text string
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		out, callErr := c.call(ctx, apiKey, prompt)
		if callErr != nil {
			return callErr
		}
		text = out
		return nil
	})
	metrics.ProviderRequestDuration.WithLabelValues("ai_generate").Observe(time.Since(started).Seconds())

	if err != nil {
		c.log.Warn().Err(err).Msg("ai generation failed")
		return "", err
	}
	return text, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	key, err := c.settings.GetString(ctx, ports.SettingAIAPIKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("settings lookup failed, falling back to env key")
	}
	if key == "" {
		key = c.envKey
	}
	if key == "" {
		return "", domain.ErrMissingAPIKey
	}
	return key, nil
}

func (c *Client) call(ctx context.Context, apiKey, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", pkgerrors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", retry.Transient(pkgerrors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", retry.Transient(pkgerrors.Errorf("provider http %d", resp.StatusCode))
	case resp.StatusCode/100 != 2:
		return "", pkgerrors.Errorf("provider http %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", retry.Transient(pkgerrors.Wrap(err, "decode response"))
	}
	if out.Error != nil {
		// provider-reported overload comes back inside a 200 envelope
		if out.Error.Status == "UNAVAILABLE" || out.Error.Status == "OVERLOADED" {
			return "", retry.Transient(pkgerrors.Errorf("provider status %s", out.Error.Status))
		}
		return "", pkgerrors.Errorf("provider error: %s", out.Error.Message)
	}
	return out.Text, nil
}
