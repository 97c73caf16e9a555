package pipeline

import (
	"context"
	"encoding/json"

	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

const intentSystemPrompt = `You extract search intent signals from a place-search query.

Rules:
- proximity: the user wants results near a location ("near me", "nearby", "in <place>", "closest")
- open_now: the user wants places that are open right now
- budget: the user cares about low price ("cheap", "affordable", "budget")
- quality: the user cares about quality or occasion ("best", "top rated", "romantic", "fancy")
- category_key: the single place category the query asks for, as a lowercase key like "restaurant", "cafe", "pharmacy"; empty when unclear
- location_text: a location named inside the query text ("downtown", "Tel Aviv"); empty when none

Respond with JSON only.`

var intentSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"proximity":     map[string]interface{}{"type": "boolean"},
		"open_now":      map[string]interface{}{"type": "boolean"},
		"budget":        map[string]interface{}{"type": "boolean"},
		"quality":       map[string]interface{}{"type": "boolean"},
		"category_key":  map[string]interface{}{"type": "string"},
		"location_text": map[string]interface{}{"type": "string"},
	},
	"required": []interface{}{"proximity", "open_now", "budget", "quality"},
}

// extractIntent pulls the structured flag set out of the query. Any failure,
// transport or schema, falls back to the conservative default: all flags off,
// no category, no location.
func (s *Service) extractIntent(ctx context.Context, query string) models.IntentFlags {
	response, err := s.callLLM(ctx, &interfaces.GenerateRequest{
		SystemPrompt: intentSystemPrompt,
		UserPrompt:   query,
		OutputSchema: intentSchema,
		MaxTokens:    256,
	}, s.config.IntentMaxAttempts)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Intent extraction failed, using conservative defaults")
		return models.ConservativeIntent()
	}

	var flags models.IntentFlags
	if err := json.Unmarshal([]byte(cleanJSONResponse(response)), &flags); err != nil {
		s.logger.Warn().Err(err).Str("response", response).Msg("Intent response unparseable, using conservative defaults")
		return models.ConservativeIntent()
	}

	return flags
}
