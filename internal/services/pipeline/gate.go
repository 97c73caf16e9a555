package pipeline

import (
	"context"
	"encoding/json"

	"github.com/tanglebrook/vicinity/internal/interfaces"
)

const gateSystemPrompt = `You classify whether a user query is a place search.

A place search asks to find, locate or compare physical places: businesses,
venues, services, landmarks, addresses. Anything else (general knowledge,
math, chit-chat, code) is out of domain.

Respond with JSON only.`

var gateSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"in_domain": map[string]interface{}{
			"type":        "boolean",
			"description": "true when the query asks to find physical places",
		},
		"reason": map[string]interface{}{
			"type": "string",
		},
	},
	"required": []interface{}{"in_domain"},
}

type gateVerdict struct {
	InDomain bool   `json:"in_domain"`
	Reason   string `json:"reason,omitempty"`
}

// runGate classifies whether the query is a place search. The verdict is
// advisory: an out-of-domain query still runs, it just skips intent
// extraction and goes through as plain free text. Exhausted retries or a
// malformed verdict soft-fail to in-domain so the job never aborts here.
func (s *Service) runGate(ctx context.Context, query string) bool {
	response, err := s.callLLM(ctx, &interfaces.GenerateRequest{
		SystemPrompt: gateSystemPrompt,
		UserPrompt:   query,
		OutputSchema: gateSchema,
		MaxTokens:    128,
	}, s.config.GateMaxAttempts)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Gate classification unavailable, proceeding in-domain")
		return true
	}

	var verdict gateVerdict
	if err := json.Unmarshal([]byte(cleanJSONResponse(response)), &verdict); err != nil {
		s.logger.Warn().Err(err).Str("response", response).Msg("Gate verdict unparseable, proceeding in-domain")
		return true
	}

	if !verdict.InDomain {
		s.logger.Info().Str("reason", verdict.Reason).Msg("Query classified out of domain")
	}
	return verdict.InDomain
}
