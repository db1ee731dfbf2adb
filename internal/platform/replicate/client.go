package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/platform/envutil"
)

const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Client submits image generation predictions and polls them for completion.
type Client interface {
	Submit(ctx context.Context, input PredictionInput) (*Prediction, error)
	Get(ctx context.Context, id string) (*Prediction, error)
}

type PredictionInput struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	NumOutputs      int    `json:"number_of_images,omitempty"`
	PromptOptimizer bool   `json:"prompt_optimizer"`
}

type Prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Terminal reports whether the prediction can no longer change state.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// FirstOutput returns the first output URL, or "" when the prediction
// produced none.
func (p *Prediction) FirstOutput() string {
	if len(p.Output) == 0 {
		return ""
	}
	return p.Output[0]
}

type client struct {
	httpClient   *http.Client
	log          *logger.Logger
	apiToken     string
	baseURL      string
	modelVersion string
}

func NewClient(log *logger.Logger) (Client, error) {
	serviceLog := log.With("service", "ReplicateClient")
	apiToken := envutil.String("REPLICATE_API_TOKEN", "")
	if apiToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is not set")
	}
	baseURL := envutil.String("REPLICATE_BASE_URL", "https://api.replicate.com/v1")
	modelVersion := envutil.String("REPLICATE_MODEL_VERSION", "minimax/image-01")
	return &client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log:          serviceLog,
		apiToken:     apiToken,
		baseURL:      baseURL,
		modelVersion: modelVersion,
	}, nil
}

type predictionEnvelope struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type apiError struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

func (c *client) Submit(ctx context.Context, input PredictionInput) (*Prediction, error) {
	body := map[string]interface{}{
		"version": c.modelVersion,
		"input":   input,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *client) Get(ctx context.Context, id string) (*Prediction, error) {
	if id == "" {
		return nil, fmt.Errorf("prediction id required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *client) do(req *http.Request) (*Prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read replicate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("replicate status %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return nil, fmt.Errorf("replicate status %d", resp.StatusCode)
	}

	var envelope predictionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode replicate response: %w", err)
	}

	return &Prediction{
		ID:     envelope.ID,
		Status: envelope.Status,
		Output: decodeOutput(envelope.Output),
		Error:  envelope.Error,
	}, nil
}

// decodeOutput accepts both a single URL string and a list of URLs; the
// provider uses either depending on the model.
func decodeOutput(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}
