package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"text/template"
	"time"

	"github.com/visionsmith/argus-api/internal/classifier"
	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/taxonomy"
	"google.golang.org/genai"
)

// GeminiClassifier implements the classifier.Classifier interface using
// Google's Gemini API to label images.
type GeminiClassifier struct {
	logger *slog.Logger

	// config contains classifier-specific configuration
	config config.ClassifierConfig

	// promptTemplate is the parsed template for creating prompts
	promptTemplate *template.Template

	// taxonomy constrains what labels the prompt offers the model
	taxonomy *taxonomy.Taxonomy

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// promptData is the data passed to the prompt template.
type promptData struct {
	MaxLabels int
	Taxonomy  string
}

// responseSchema is the JSON shape the prompt asks the model for.
type responseSchema struct {
	Labels []labelSchema `json:"labels"`
}

type labelSchema struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Ensure GeminiClassifier implements classifier.Classifier
var _ classifier.Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a new GeminiClassifier with the provided
// dependencies. The prompt template comes from config.PromptTemplatePath
// when set, otherwise from the embedded default.
func NewGeminiClassifier(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.ClassifierConfig,
	tax *taxonomy.Taxonomy,
) (*GeminiClassifier, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if tax == nil {
		return nil, fmt.Errorf("%w: taxonomy cannot be nil", classifier.ErrInvalidConfig)
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", classifier.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", classifier.ErrInvalidConfig)
	}
	if cfg.MaxLabels <= 0 {
		return nil, fmt.Errorf("%w: max labels must be positive", classifier.ErrInvalidConfig)
	}

	templateContent := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		fileContent, err := os.ReadFile(cfg.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				classifier.ErrInvalidConfig, cfg.PromptTemplatePath, err)
		}
		templateContent = string(fileContent)
	}

	promptTemplate, err := template.New("classify").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			classifier.ErrInvalidConfig, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			classifier.ErrInvalidConfig, err)
	}

	return &GeminiClassifier{
		logger:         logger.With("component", "gemini_classifier"),
		config:         cfg,
		promptTemplate: promptTemplate,
		taxonomy:       tax,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// ModelName implements classifier.Classifier.
func (g *GeminiClassifier) ModelName() string {
	return g.model
}

// Classify implements classifier.Classifier. It renders the prompt,
// calls the Gemini API with retries for transient failures, and
// validates the returned labels.
func (g *GeminiClassifier) Classify(
	ctx context.Context,
	img classifier.Image,
	opts classifier.Options,
) ([]classifier.Label, error) {
	if len(img.Data) == 0 {
		return nil, classifier.ErrEmptyImage
	}

	maxLabels := opts.MaxLabels
	if maxLabels <= 0 || maxLabels > g.config.MaxLabels {
		maxLabels = g.config.MaxLabels
	}

	prompt, err := g.renderPrompt(maxLabels)
	if err != nil {
		return nil, err
	}

	response, err := g.callGeminiWithRetry(ctx, prompt, img)
	if err != nil {
		return nil, err
	}

	return g.validateLabels(ctx, response, maxLabels)
}

// renderPrompt executes the prompt template with the taxonomy fragment
// and the label cap.
func (g *GeminiClassifier) renderPrompt(maxLabels int) (string, error) {
	data := promptData{
		MaxLabels: maxLabels,
		Taxonomy:  g.taxonomy.PromptFragment(),
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callGeminiWithRetry makes a multimodal Gemini call with exponential
// backoff and jitter between retries for transient errors. Permanent
// errors (safety blocks, malformed responses) are returned immediately.
func (g *GeminiClassifier) callGeminiWithRetry(
	ctx context.Context,
	prompt string,
	img classifier.Image,
) (*responseSchema, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	attempt := 0
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{
					MIMEType: img.MIMEType,
					Data:     img.Data,
				}},
			},
		},
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt <= maxRetries {
		attemptNum := attempt + 1 // For logging (1-based)
		g.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1,
			"image_bytes", len(img.Data))

		response, transient, err := g.callOnce(ctx, contents, genConfig)
		if err == nil {
			g.logger.DebugContext(ctx, "Gemini API call successful", "attempt", attemptNum)
			return response, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if errors.Is(err, classifier.ErrContentBlocked) || errors.Is(err, classifier.ErrInvalidResponse) {
			return nil, err
		}

		if attempt >= maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached", "max_retries", maxRetries)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				classifier.ErrTransientFailure, maxRetries)
		}

		if !transient {
			return nil, err
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.DebugContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", classifier.ErrTransientFailure, ctx.Err())
		}

		attempt++
	}

	return nil, fmt.Errorf("%w: failed after %d attempts",
		classifier.ErrTransientFailure, attempt)
}

// callOnce performs a single GenerateContent call and classifies its
// failure as transient or permanent.
func (g *GeminiClassifier) callOnce(
	ctx context.Context,
	contents []*genai.Content,
	genConfig *genai.GenerateContentConfig,
) (*responseSchema, bool, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		// Network and upstream availability problems are worth a retry.
		return nil, true, fmt.Errorf("%w: %v", classifier.ErrClassificationFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("%w: no content generated", classifier.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: finish reason safety", classifier.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, false, fmt.Errorf("%w: empty content in response", classifier.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: failed to parse JSON response: %v",
			classifier.ErrInvalidResponse, err)
	}

	return &parsed, false, nil
}

// validateLabels checks the model's labels: names must be present,
// confidences are clamped to [0, 1], and the count is capped.
func (g *GeminiClassifier) validateLabels(
	ctx context.Context,
	response *responseSchema,
	maxLabels int,
) ([]classifier.Label, error) {
	if response == nil || len(response.Labels) == 0 {
		return nil, fmt.Errorf("%w: no labels in response", classifier.ErrInvalidResponse)
	}

	labels := make([]classifier.Label, 0, len(response.Labels))
	for i, l := range response.Labels {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: label %d missing name", classifier.ErrInvalidResponse, i)
		}

		confidence := l.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}

		labels = append(labels, classifier.Label{
			Name:       l.Name,
			Confidence: confidence,
		})

		if len(labels) == maxLabels {
			break
		}
	}

	g.logger.DebugContext(ctx, "labels validated",
		"returned", len(response.Labels),
		"kept", len(labels))

	return labels, nil
}
