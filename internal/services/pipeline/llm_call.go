package pipeline

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// callLLM runs one schema-constrained extraction call with a per-call timeout
// and bounded, jittered retries. Only transport-class failures are retried;
// a schema-invalid response fails immediately so the stage can fall back.
func (s *Service) callLLM(ctx context.Context, req *interfaces.GenerateRequest, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", models.NewClassifiedError(models.ErrorKindAborted, ctx.Err())
			case <-time.After(jitteredBackoff(s.retryBaseBackoff, attempt)):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.llmCallTimeout)
		response, err := s.llm.Generate(callCtx, req)
		cancel()

		if err == nil {
			return response, nil
		}

		lastErr = err
		kind := models.Classify(err)
		if !kind.IsRetryable() {
			return "", err
		}

		s.logger.Warn().
			Err(err).
			Str("error_kind", string(kind)).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Msg("LLM call failed, retrying")
	}

	return "", lastErr
}

// jitteredBackoff grows exponentially from base with +/-20% jitter.
func jitteredBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(backoff) * jitter)
}

// cleanJSONResponse strips markdown code fences some providers wrap around
// JSON output.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
	}
	return strings.TrimSpace(response)
}
