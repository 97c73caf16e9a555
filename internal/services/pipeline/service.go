// Package pipeline runs one search job end to end: gate, intent extraction,
// canonical mode policy, provider-query mapping, the cache-guarded provider
// call, and post-processing. Every stage before the provider call has a
// deterministic fallback; only the provider call can fail the job.
package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
	"github.com/tanglebrook/vicinity/internal/services/ranking"
)

const clarificationMessage = "This search needs a location. Add coordinates to the request or name a place in the query."

// Service implements the SearchPipeline interface
type Service struct {
	config     *common.PipelineConfig
	logger     arbor.ILogger
	llm        interfaces.LLMService
	places     interfaces.PlacesService
	cache      interfaces.CacheService
	enrich     interfaces.EnrichService
	resolver   *ranking.Resolver
	categories *CategoryTable

	llmCallTimeout   time.Duration
	retryBaseBackoff time.Duration
}

// NewService creates the stage pipeline. enrichService may be nil when
// background enrichment is disabled.
func NewService(config *common.Config, llmService interfaces.LLMService, placesService interfaces.PlacesService, cacheService interfaces.CacheService, enrichService interfaces.EnrichService, logger arbor.ILogger) interfaces.SearchPipeline {
	return &Service{
		config:           &config.Pipeline,
		logger:           logger,
		llm:              llmService,
		places:           placesService,
		cache:            cacheService,
		enrich:           enrichService,
		resolver:         ranking.NewResolver(config.Ranking.WeightFloor, config.Ranking.WeightCeiling),
		categories:       DefaultCategoryTable(),
		llmCallTimeout:   common.ParseDurationOr(config.Pipeline.LLMCallTimeout, 10*time.Second),
		retryBaseBackoff: common.ParseDurationOr(config.Pipeline.RetryBaseBackoff, 500*time.Millisecond),
	}
}

// Execute runs the fixed stage sequence for one job. Stages are strictly
// sequential; progress is reported after each one.
func (s *Service) Execute(ctx context.Context, job *models.SearchJob, progress func(pct int, stage string)) (*models.SearchResult, error) {
	req := job.Request

	progress(10, "gate")
	inDomain := s.runGate(ctx, req.Query)

	// Out-of-domain queries skip extraction and go through as plain free
	// text with conservative flags.
	flags := models.ConservativeIntent()
	if inDomain {
		progress(25, "intent")
		flags = s.extractIntent(ctx, req.Query)
	}

	progress(40, "mode")
	mode := DecideMode(req, flags, s.categories)
	if mode == models.ModeNeedsClarification {
		s.logger.Info().Str("job_id", job.ID).Msg("Proximity intent without a location, asking for clarification")
		return &models.SearchResult{
			Outcome:       models.OutcomeNeedsClarification,
			Weights:       ranking.BaseWeights(),
			Clarification: clarificationMessage,
		}, nil
	}

	weights, ruleIDs := s.resolver.ResolveWeights(flags)
	query := BuildQuery(req, flags, mode, s.categories, s.config.DefaultRadiusMeters)

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("mode", string(mode)).
		Str("query_kind", string(query.Kind)).
		Str("category_key", flags.CategoryKey).
		Strs("rule_ids", ruleIDs).
		Msg("Query mapped")

	progress(55, "provider")
	fetch := func(fetchCtx context.Context) (*models.SearchResult, error) {
		return s.fetchAndRank(fetchCtx, req, flags, mode, query, weights, ruleIDs, progress)
	}

	result, cached, err := s.cache.GetOrFetch(ctx, req, mode, fetch)
	if err != nil {
		return nil, err
	}

	progress(95, "finalize")
	if s.enrich != nil && len(result.Places) > 0 {
		s.enrich.EnqueueTopN(result.Places)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Int("places", len(result.Places)).
		Bool("cache_hit", cached).
		Msg("Pipeline finished")

	return result, nil
}

// fetchAndRank is the cache-miss path: the real provider call, category
// enforcement, and ranking. Provider failures propagate classified and
// terminal.
func (s *Service) fetchAndRank(ctx context.Context, req *models.SearchRequest, flags models.IntentFlags, mode models.CanonicalMode, query *models.MappedQuery, weights models.WeightVector, ruleIDs []string, progress func(pct int, stage string)) (*models.SearchResult, error) {
	candidates, err := s.places.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	progress(80, "postprocess")

	category, _ := s.categories.Lookup(flags.CategoryKey)
	kept, step := enforceCategory(candidates, category, s.config.MinCategoryResults)

	// The broadened rung of the ladder: when filtering starved a keyed
	// result set, re-query the provider as free text and take whichever set
	// is usable.
	if step == ladderBroadened && mode == models.ModeKeyed {
		broadQuery := BuildQuery(req, flags, models.ModeFreeText, s.categories, s.config.DefaultRadiusMeters)
		broadened, reErr := s.places.Search(ctx, broadQuery)
		switch {
		case reErr != nil:
			s.logger.Warn().Err(reErr).Msg("Broadened re-query failed, keeping original candidates")
		case len(broadened) > 0:
			kept = broadened
		}
	}

	ranked := ranking.Rank(kept, req.Location, weights, s.config.MaxResults)

	return &models.SearchResult{
		Outcome:        models.OutcomeResults,
		Places:         ranked,
		Weights:        weights,
		AppliedRuleIDs: ruleIDs,
	}, nil
}
