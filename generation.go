package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationParams is the parameter set carried by a workflow node.
type GenerationParams struct {
	Model       string `json:"model,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Seed        int64  `json:"seed,omitempty"`
	Steps       int    `json:"steps,omitempty"`
}

func (p GenerationParams) identity() string {
	return fmt.Sprintf("%s|%s|%d|%d", p.Model, p.AspectRatio, p.Seed, p.Steps)
}

// ImageRef points at a stored image. Role distinguishes control from
// reference inputs in legacy sessions; current sessions leave it empty.
type ImageRef struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// Generation is one prompt-to-output record. It is immutable once it
// reaches a terminal status.
type Generation struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"createdAt"`
	Status      GenerationStatus `json:"status"`
	Prompt      string           `json:"prompt"`
	Params      GenerationParams `json:"params"`
	Inputs      []ImageRef       `json:"inputs,omitempty"`
	Outputs     []string         `json:"outputs,omitempty"`
	OutputTexts []string         `json:"outputTexts,omitempty"`
	Error       string           `json:"error,omitempty"`
	Duration    time.Duration    `json:"duration,omitempty"`
}

func NewGeneration(prompt string, params GenerationParams, inputs []ImageRef) Generation {
	return Generation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Status:    GenerationPending,
		Prompt:    prompt,
		Params:    params,
		Inputs:    inputs,
	}
}

// GenerateRequest is the assembled payload for one workflow trigger.
type GenerateRequest struct {
	Prompt          string
	Params          GenerationParams
	ControlImages   [][]byte
	ReferenceImages [][]byte
}

type GenerateResult struct {
	Images [][]byte
	Texts  []string
}

// Generator is the external generation collaborator: a single async
// call, no streaming, no partial results.
type Generator interface {
	GenerateImage(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator talks JSON to a generation service endpoint.
type HTTPGenerator struct {
	baseURL string
	key     string
	client  *http.Client
}

func NewHTTPGenerator(baseURL, key string) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

type wireGenerateRequest struct {
	Prompt          string   `json:"prompt"`
	Model           string   `json:"model,omitempty"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"`
	Seed            int64    `json:"seed,omitempty"`
	Steps           int      `json:"steps,omitempty"`
	ControlImages   []string `json:"control_images,omitempty"`
	ReferenceImages []string `json:"reference_images,omitempty"`
	TextOnly        bool     `json:"text_only,omitempty"`
}

type wireGenerateResponse struct {
	Images []string `json:"images"`
	Texts  []string `json:"texts"`
	Error  string   `json:"error"`
}

func (g *HTTPGenerator) GenerateImage(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	wire := wireGenerateRequest{
		Prompt:      req.Prompt,
		Model:       req.Params.Model,
		AspectRatio: req.Params.AspectRatio,
		Seed:        req.Params.Seed,
		Steps:       req.Params.Steps,
	}
	for _, img := range req.ControlImages {
		wire.ControlImages = append(wire.ControlImages, base64.StdEncoding.EncodeToString(img))
	}
	for _, img := range req.ReferenceImages {
		wire.ReferenceImages = append(wire.ReferenceImages, base64.StdEncoding.EncodeToString(img))
	}

	resp, err := g.post(ctx, "/v1/generate", wire)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Texts: resp.Texts}
	for _, enc := range resp.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("decode generated image: %w", err)
		}
		result.Images = append(result.Images, data)
	}
	return result, nil
}

func (g *HTTPGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.post(ctx, "/v1/generate", wireGenerateRequest{Prompt: prompt, TextOnly: true})
	if err != nil {
		return "", err
	}
	if len(resp.Texts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return resp.Texts[0], nil
}

func (g *HTTPGenerator) post(ctx context.Context, path string, body wireGenerateRequest) (*wireGenerateResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.key != "" {
		req.Header.Set("Authorization", "Bearer "+g.key)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service error %d: %s", resp.StatusCode, string(respBody))
	}

	var out wireGenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("generation service: %s", out.Error)
	}
	return &out, nil
}
