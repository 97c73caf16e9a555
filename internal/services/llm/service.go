package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// Service implements the LLMService interface over Gemini and Claude.
// The active provider is chosen by configuration; clients are created
// lazily so a missing key for the unused provider never blocks startup.
type Service struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	kvStorage    interfaces.KeyValueStorage
	logger       arbor.ILogger
	retry        *RetryConfig

	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
}

// NewService creates a new LLM service from configuration
func NewService(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		geminiConfig: &config.Gemini,
		claudeConfig: &config.Claude,
		llmConfig:    &config.LLM,
		kvStorage:    kvStorage,
		logger:       logger,
		retry:        NewDefaultRetryConfig(),
	}
}

// ProviderName returns the configured provider identifier
func (s *Service) ProviderName() string {
	if s.llmConfig.DefaultProvider == "" {
		return string(ProviderGemini)
	}
	return s.llmConfig.DefaultProvider
}

// Generate produces a completion for the given request, routing to the
// configured provider with bounded retries.
func (s *Service) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.UserPrompt) == "" {
		return "", fmt.Errorf("generate request requires a user prompt")
	}

	switch ProviderType(s.ProviderName()) {
	case ProviderClaude:
		return s.generateWithClaude(ctx, req)
	default:
		return s.generateWithGemini(ctx, req)
	}
}

// HealthCheck verifies the active provider is reachable and authenticated
func (s *Service) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := s.Generate(probeCtx, &interfaces.GenerateRequest{
		UserPrompt: "ping",
		MaxTokens:  8,
	})
	if err != nil {
		return fmt.Errorf("provider health check failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("provider health check returned empty response")
	}
	return nil
}

// Close releases provider clients
func (s *Service) Close() error {
	s.geminiClient = nil
	s.claudeClient = anthropic.Client{}
	s.claudeReady = false
	return nil
}

// getGeminiClient returns a Gemini client, creating one if necessary
func (s *Service) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	if s.geminiClient != nil {
		return s.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "gemini_api_key", s.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s.geminiClient = client
	return client, nil
}

// getClaudeClient returns a Claude client, creating one if necessary
func (s *Service) getClaudeClient(ctx context.Context) (anthropic.Client, error) {
	if s.claudeReady {
		return s.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "anthropic_api_key", s.claudeConfig.APIKey)
	if err != nil {
		return anthropic.Client{}, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	s.claudeClient = client
	s.claudeReady = true
	return client, nil
}

// generateWithGemini generates content using the Gemini API. When the
// request carries an output schema, the response is constrained to JSON
// matching it.
func (s *Service) generateWithGemini(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	client, err := s.getGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.geminiConfig.Temperature),
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	if len(req.OutputSchema) > 0 {
		genaiSchema, err := convertToGenaiSchema(req.OutputSchema)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to convert output schema")
		} else if genaiSchema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = genaiSchema
		}
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = client.Models.GenerateContent(ctx, s.geminiConfig.Model, contents, config)
		if apiErr == nil {
			break
		}

		if attempt == s.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = s.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = s.retry.CalculateBackoff(attempt, 0)
		}

		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Gemini API call failed after %d retries: %w", s.retry.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return responseText, nil
}

// generateWithClaude generates content using the Claude API. Claude has no
// native response-schema constraint, so schema requests are folded into the
// system prompt and the caller validates the JSON.
func (s *Service) generateWithClaude(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	client, err := s.getClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.claudeConfig.MaxTokens
	}

	systemText := req.SystemPrompt
	if len(req.OutputSchema) > 0 {
		systemText += "\nRespond with a single JSON object and no surrounding text."
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.claudeConfig.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}

	if s.claudeConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.claudeConfig.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, 0)

		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed after %d retries: %w", s.retry.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}

// convertToGenaiSchema converts a map[string]interface{} representation of a
// JSON schema to a genai.Schema structure.
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enumVals, ok := schemaMap["enum"].([]interface{}); ok {
		for _, v := range enumVals {
			if str, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, str)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	if reqVals, ok := schemaMap["required"].([]interface{}); ok {
		for _, v := range reqVals {
			if str, ok := v.(string); ok {
				schema.Required = append(schema.Required, str)
			}
		}
	} else if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]interface{}); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}
