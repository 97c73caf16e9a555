package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
	"github.com/tanglebrook/vicinity/internal/services/events"
)

// stubPipeline scripts the execution outcome for one job.
type stubPipeline struct {
	stages []stubStage
	result *models.SearchResult
	err    error
}

type stubStage struct {
	pct  int
	name string
}

func (p *stubPipeline) Execute(ctx context.Context, job *models.SearchJob, progress func(pct int, stage string)) (*models.SearchResult, error) {
	for _, stage := range p.stages {
		progress(stage.pct, stage.name)
	}
	return p.result, p.err
}

// eventRecorder captures published events in delivery order.
type eventRecorder struct {
	mu     sync.Mutex
	events []*models.JobEvent
}

func (r *eventRecorder) sink(event *models.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []*models.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.JobEvent(nil), r.events...)
}

func successResult() *models.SearchResult {
	return &models.SearchResult{
		Outcome: models.OutcomeResults,
		Places: []models.RankedPlace{
			{Place: models.PlaceItem{PlaceID: "p1", Name: "Tony's"}, Rank: 1},
		},
	}
}

func newTestService(t *testing.T, pipeline interfaces.SearchPipeline, ttl string) (interfaces.JobService, interfaces.EventService) {
	t.Helper()
	config := common.NewDefaultConfig()
	if ttl != "" {
		config.Jobs.TTL = ttl
	}
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	return NewService(config, pipeline, eventService, logger), eventService
}

func validRequest() *models.SearchRequest {
	return &models.SearchRequest{
		Query:    "pizza near the beach",
		Location: &models.Location{Latitude: 32.0853, Longitude: 34.7818},
	}
}

// waitForTerminal polls until the job reaches a DONE state or the deadline
// passes.
func waitForTerminal(t *testing.T, service interfaces.JobService, sessionID, jobID string) *models.SearchJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := service.GetJob(context.Background(), sessionID, jobID)
		require.NoError(t, err)
		if job.State.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Job never reached a terminal state")
	return nil
}

func TestCreateJobRequiresSession(t *testing.T) {
	service, _ := newTestService(t, &stubPipeline{result: successResult()}, "")

	_, err := service.CreateJob(context.Background(), "", validRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSessionRequired))
	assert.Equal(t, models.ErrorKindAuthMissing, models.Classify(err))
}

func TestCreateJobValidatesRequest(t *testing.T) {
	service, _ := newTestService(t, &stubPipeline{result: successResult()}, "")

	_, err := service.CreateJob(context.Background(), "sess-a", nil)
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindSchemaInvalid, models.Classify(err))

	_, err = service.CreateJob(context.Background(), "sess-a", &models.SearchRequest{Query: ""})
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindSchemaInvalid, models.Classify(err))

	_, err = service.CreateJob(context.Background(), "sess-a", &models.SearchRequest{Query: "pizza", Region: "israel"})
	require.Error(t, err, "Region must be a 2-letter code")
}

func TestCreateJobRunsToSuccess(t *testing.T) {
	pipeline := &stubPipeline{
		stages: []stubStage{{30, "gate"}, {60, "provider"}, {90, "ranking"}},
		result: successResult(),
	}
	service, _ := newTestService(t, pipeline, "")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatePending, accepted.State)
	assert.Equal(t, "sess-a", accepted.OwnerSessionID)
	assert.NotEmpty(t, accepted.ID)

	done := waitForTerminal(t, service, "sess-a", accepted.ID)
	assert.Equal(t, models.JobStateSuccess, done.State)
	assert.Equal(t, 100, done.ProgressPct)
	require.NotNil(t, done.Result)
	assert.Len(t, done.Result.Places, 1)
	assert.Empty(t, done.ErrorKind)
	assert.NotNil(t, done.CompletedAt)
}

func TestCreateJobFailureCarriesClassifiedKind(t *testing.T) {
	pipeline := &stubPipeline{
		err: models.NewClassifiedError(models.ErrorKindTimeout, context.DeadlineExceeded),
	}
	service, _ := newTestService(t, pipeline, "")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)

	done := waitForTerminal(t, service, "sess-a", accepted.ID)
	assert.Equal(t, models.JobStateFailed, done.State)
	assert.Equal(t, models.ErrorKindTimeout, done.ErrorKind)
	assert.Nil(t, done.Result, "Failed jobs must not carry a result")
	assert.NotEmpty(t, done.ErrorMessage)
}

func TestGetJobUniformNotFound(t *testing.T) {
	service, _ := newTestService(t, &stubPipeline{result: successResult()}, "")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)
	waitForTerminal(t, service, "sess-a", accepted.ID)

	cases := []struct {
		name      string
		sessionID string
		jobID     string
	}{
		{"unknown id", "sess-a", "job_0_missing"},
		{"foreign session", "sess-b", accepted.ID},
		{"empty session", "", accepted.ID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.GetJob(context.Background(), tc.sessionID, tc.jobID)
			assert.ErrorIs(t, err, models.ErrJobNotFound)
		})
	}
}

func TestGetJobExpiredRecordNotFound(t *testing.T) {
	service, _ := newTestService(t, &stubPipeline{result: successResult()}, "10ms")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = service.GetJob(context.Background(), "sess-a", accepted.ID)
	assert.ErrorIs(t, err, models.ErrJobNotFound, "Even the owner cannot read an expired record")
}

func TestSweepExpiredRemovesJobsAndEventChannels(t *testing.T) {
	service, eventService := newTestService(t, &stubPipeline{result: successResult()}, "10ms")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, service.Count())

	time.Sleep(30 * time.Millisecond)

	removed := service.SweepExpired(context.Background())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, service.Count())

	// The event channel went with the job, so a late subscriber gets no
	// backlog.
	rec := &eventRecorder{}
	eventService.Subscribe("client-1", "sess-a", accepted.ID, rec.sink)
	assert.Empty(t, rec.all())
}

func TestJobEventsArriveInLifecycleOrder(t *testing.T) {
	pipeline := &stubPipeline{
		stages: []stubStage{{30, "gate"}, {60, "provider"}},
		result: successResult(),
	}
	service, eventService := newTestService(t, pipeline, "")

	accepted, err := service.CreateJob(context.Background(), "sess-a", validRequest())
	require.NoError(t, err)
	waitForTerminal(t, service, "sess-a", accepted.ID)

	// Backlog replay gives the full history regardless of when we attach.
	rec := &eventRecorder{}
	eventService.Subscribe("client-1", "sess-a", accepted.ID, rec.sink)

	received := rec.all()
	require.NotEmpty(t, received)

	lastPct := -1
	lastSeq := uint64(0)
	for _, event := range received {
		assert.Equal(t, accepted.ID, event.JobID)
		assert.GreaterOrEqual(t, event.ProgressPct, lastPct, "Progress must never regress")
		assert.Greater(t, event.Sequence, lastSeq, "Sequence must be strictly increasing")
		lastPct = event.ProgressPct
		lastSeq = event.Sequence
	}

	final := received[len(received)-1]
	assert.Equal(t, models.JobStateSuccess, final.State)
	assert.Equal(t, 100, final.ProgressPct)
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	service, _ := newTestService(t, &stubPipeline{result: successResult()}, "")

	sweeper := NewSweeper("not a schedule", service, arbor.NewLogger())
	assert.Error(t, sweeper.Start())

	sweeper = NewSweeper("@every 1h", service, arbor.NewLogger())
	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()
	assert.Error(t, sweeper.Start(), "Double start must be refused")
}
