package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	whitelistQueryPath    = "is_whitelisted"
	whitelistQueryTimeout = 5 * time.Second
)

// WhitelistChecker asks the host process whether it has already registered a
// pack. The answer is ephemeral and never persisted.
type WhitelistChecker struct {
	Logger zerolog.Logger

	client *http.Client

	// sourceIdentity identifies this store to the host, the authority the
	// host uses to query us back.
	sourceIdentity string
	endpoints      []string
}

func NewWhitelistChecker(sourceIdentity string, endpoints []string, logger zerolog.Logger) *WhitelistChecker {
	return &WhitelistChecker{
		Logger: logger,
		client: &http.Client{
			Timeout: whitelistQueryTimeout,
		},
		sourceIdentity: sourceIdentity,
		endpoints:      endpoints,
	}
}

type whitelistResponse struct {
	Result int `json:"result"`
}

// IsWhitelisted returns true if any configured host endpoint reports the
// pack as registered. Failures count as not registered.
func (wc *WhitelistChecker) IsWhitelisted(ctx context.Context, identifier string) bool {
	for _, endpoint := range wc.endpoints {
		whitelisted, err := wc.queryEndpoint(ctx, endpoint, identifier)
		if err != nil {
			wc.Logger.Debug().
				Err(err).
				Str("endpoint", endpoint).
				Str("identifier", identifier).
				Msg("Whitelist query failed")

			continue
		}

		if whitelisted {
			return true
		}
	}

	return false
}

func (wc *WhitelistChecker) queryEndpoint(ctx context.Context, endpoint, identifier string) (bool, error) {
	query := url.Values{}
	query.Set("authority", wc.sourceIdentity)
	query.Set("identifier", identifier)

	requestURL := endpoint + "/" + whitelistQueryPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create whitelist request: %w", err)
	}

	res, err := wc.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("whitelist request: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("whitelist request: unexpected status %d", res.StatusCode)
	}

	var response whitelistResponse

	err = json.NewDecoder(res.Body).Decode(&response)
	if err != nil {
		return false, fmt.Errorf("failed to decode whitelist response: %w", err)
	}

	return response.Result == 1, nil
}
