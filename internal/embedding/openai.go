package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

const maxErrorBody = 512

// StatusError is a non-2xx answer from the embedding service. Wait holds
// the server's Retry-After hint, if any.
type StatusError struct {
	Code int
	Body string
	Wait time.Duration
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding API status %d: %v: %s", e.Code, e.Err, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func (e *StatusError) RetryAfter() time.Duration {
	return e.Wait
}

// OpenAI calls an OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAI(cfg config.EmbeddingConfig, httpClient *http.Client) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"embedding API key is not set (OPENAI_API_KEY or WV_EMBEDDING_API_KEY)")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-ada-002"
	}
	return &OpenAI{
		apiKey:     cfg.APIKey,
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedBatch sends all words in one request. Response items are matched to
// words by their index; a word without a usable item fails on its own.
func (p *OpenAI) EmbedBatch(ctx context.Context, words []string) ([]Result, error) {
	if len(words) == 0 {
		return nil, nil
	}
	body, err := gojson.Marshal(embeddingRequest{Model: p.model, Input: words})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute embedding request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sentinel := apperrors.ErrGenerationFailed
		if resp.StatusCode == http.StatusTooManyRequests {
			sentinel = apperrors.ErrRateLimited
		}
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: truncate(string(respBody)),
			Wait: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:  sentinel,
		}
	}

	var parsed embeddingResponse
	if err := gojson.Unmarshal(respBody, &parsed); err != nil {
		return nil, generationError("parse embedding response: %v", err)
	}

	results := make([]Result, len(words))
	for i, w := range words {
		results[i] = Result{Word: w}
	}
	seen := make([]bool, len(words))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(words) {
			p.logger.Warn("response item index out of range", "index", item.Index, "batch_size", len(words))
			continue
		}
		seen[item.Index] = true
		if len(item.Embedding) == 0 {
			results[item.Index].Err = generationError("empty embedding for %q", words[item.Index])
			continue
		}
		results[item.Index].Vector = store.NewVector(item.Embedding)
	}
	for i, ok := range seen {
		if !ok {
			results[i].Err = generationError("no embedding returned for %q", words[i])
		}
	}
	p.logger.Debug("embedding batch received",
		"words", len(words),
		"items", len(parsed.Data),
		"total_tokens", parsed.Usage.TotalTokens,
	)
	return results, nil
}

// parseRetryAfter accepts the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
