// Package directory resolves the per-call agent profile (instructions,
// voice, language) from the ops platform at session negotiation time.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-bridge-service/internal/models"
)

// Resolver looks up the agent profile for a call. Resolution failures are
// non-fatal; sessions fall back to service defaults.
type Resolver interface {
	Resolve(ctx context.Context, callID, campaignID, languageHint string) (models.AgentProfile, error)
}

// HTTPResolver queries the ops platform's agent directory endpoint.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver creates a resolver against the given base URL.
func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Resolve fetches the profile for one call. Campaign and language hints are
// forwarded so the directory can pick campaign-specific instructions.
func (r *HTTPResolver) Resolve(ctx context.Context, callID, campaignID, languageHint string) (models.AgentProfile, error) {
	q := url.Values{}
	q.Set("call_id", callID)
	if campaignID != "" {
		q.Set("campaign_id", campaignID)
	}
	if languageHint != "" {
		q.Set("language", languageHint)
	}
	endpoint := fmt.Sprintf("%s/api/agent-profiles?%s", r.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.AgentProfile{}, fmt.Errorf("build profile request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return models.AgentProfile{}, fmt.Errorf("resolve agent profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AgentProfile{}, fmt.Errorf("agent profile lookup returned status %d", resp.StatusCode)
	}

	var profile models.AgentProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.AgentProfile{}, fmt.Errorf("decode agent profile: %w", err)
	}

	log.Debug().
		Str("callId", callID).
		Str("voice", profile.Voice).
		Str("language", profile.Language).
		Msg("Resolved agent profile")
	return profile, nil
}

// StaticResolver returns the same profile for every call. Used when no
// directory endpoint is configured.
type StaticResolver struct {
	Profile models.AgentProfile
}

// Resolve returns the static profile, applying the language hint when the
// profile does not pin a language.
func (r StaticResolver) Resolve(_ context.Context, _, _, languageHint string) (models.AgentProfile, error) {
	p := r.Profile
	if p.Language == "" {
		p.Language = languageHint
	}
	return p, nil
}
