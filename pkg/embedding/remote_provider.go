package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// remoteRateLimit caps outbound calls to a hosted embedding API to a
// conservative default, since most providers meter and throttle by
// requests-per-second; NewRemoteProvider callers cannot know the
// provider's real limit ahead of time, so this is a defensive ceiling
// rather than a tuned value.
const remoteRateLimit = 5 // requests per second

// RemoteProvider implements Provider for a hosted embedding API reached
// over HTTPS with an API key, e.g. a managed text-embedding endpoint.
// The same instance is shared across the goroutines a comparison run
// launches, so dim (learned lazily from the first response) is guarded,
// and outbound calls are throttled through a shared rate.Limiter.
type RemoteProvider struct {
	Endpoint string
	Model    string
	APIKey   string
	client   *http.Client
	limiter  *rate.Limiter

	mu  sync.RWMutex
	dim int
}

func NewRemoteProvider(endpoint, model, apiKey string) *RemoteProvider {
	return &RemoteProvider{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   apiKey,
		client:   &http.Client{},
		limiter:  rate.NewLimiter(rate.Limit(remoteRateLimit), remoteRateLimit),
	}
}

func (p *RemoteProvider) Name() string { return "remote:" + p.Model }

func (p *RemoteProvider) Dimension() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dim
}

type remoteEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type remoteEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *RemoteProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.Endpoint == "" {
		return nil, fmt.Errorf("remote provider %s: no endpoint configured", p.Model)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("remote provider %s: rate limit wait: %w", p.Model, err)
	}

	reqBody := remoteEmbeddingRequest{Model: p.Model, Input: texts}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote embedding error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed remoteEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("remote embedding error: expected %d vectors, got %d", len(texts), len(parsed.Data))
	}

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = normalizeVector(d.Embedding)
	}
	if len(vectors) > 0 {
		p.mu.Lock()
		p.dim = len(vectors[0])
		p.mu.Unlock()
	}
	return vectors, nil
}
