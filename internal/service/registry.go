package service

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
)

// instanceKey scopes aggregators and coordinators to one form within one
// project. Distinct forms never share state.
type instanceKey struct {
	projectID uuid.UUID
	formID    string
}

// AggregatorRegistry hands out one DetailAggregator per project-scoped form,
// creating it on first use.
type AggregatorRegistry struct {
	store    TraceStore
	cfg      config.AggregationConfig
	realtime *RealtimeHub
	logger   *zap.Logger

	mu        sync.Mutex
	instances map[instanceKey]*DetailAggregator
}

// NewAggregatorRegistry creates an aggregator registry
func NewAggregatorRegistry(store TraceStore, cfg config.AggregationConfig, realtime *RealtimeHub, logger *zap.Logger) *AggregatorRegistry {
	return &AggregatorRegistry{
		store:     store,
		cfg:       cfg,
		realtime:  realtime,
		logger:    logger,
		instances: make(map[instanceKey]*DetailAggregator),
	}
}

// GetOrCreate returns the form's aggregator, creating it on first use
func (r *AggregatorRegistry) GetOrCreate(projectID uuid.UUID, formID string) *DetailAggregator {
	key := instanceKey{projectID: projectID, formID: formID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if agg, ok := r.instances[key]; ok {
		return agg
	}

	agg := NewDetailAggregator(projectID, r.store, r.cfg, r.logger.With(zap.String("form_id", formID)))
	if r.realtime != nil {
		agg.OnChange(func(state *domain.AggregationState) {
			r.realtime.Publish(projectID, formID, state)
		})
	}
	r.instances[key] = agg
	return agg
}

// Get returns the form's aggregator, or nil when none exists yet
func (r *AggregatorRegistry) Get(projectID uuid.UUID, formID string) *DetailAggregator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[instanceKey{projectID: projectID, formID: formID}]
}

// CoordinatorRegistry hands out one SessionCoordinator per project-scoped
// form, creating it on first use.
type CoordinatorRegistry struct {
	client   ScoringClient
	audit    AuditRecorder
	enqueuer ScoreEnqueuer
	logger   *zap.Logger

	mu        sync.Mutex
	instances map[instanceKey]*SessionCoordinator
}

// NewCoordinatorRegistry creates a coordinator registry. audit and enqueuer
// may be nil.
func NewCoordinatorRegistry(client ScoringClient, audit AuditRecorder, enqueuer ScoreEnqueuer, logger *zap.Logger) *CoordinatorRegistry {
	return &CoordinatorRegistry{
		client:    client,
		audit:     audit,
		enqueuer:  enqueuer,
		logger:    logger,
		instances: make(map[instanceKey]*SessionCoordinator),
	}
}

// GetOrCreate returns the form's coordinator, creating it on first use
func (r *CoordinatorRegistry) GetOrCreate(projectID uuid.UUID, formID string) *SessionCoordinator {
	key := instanceKey{projectID: projectID, formID: formID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if coord, ok := r.instances[key]; ok {
		return coord
	}

	coord := NewSessionCoordinator(projectID, formID, r.client, r.audit, r.enqueuer,
		r.logger.With(zap.String("form_id", formID)))
	r.instances[key] = coord
	return coord
}
