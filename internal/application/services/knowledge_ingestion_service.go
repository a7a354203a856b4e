package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

const ingestionQueueSize = 64

// KnowledgeIngestionService accepts batches of knowledge entries and writes
// them to the primary store and the search index through a bounded worker
// pool. Submission is asynchronous: callers get a task ID back and poll
// TaskStatus for progress. There is no push notification channel.
type KnowledgeIngestionService struct {
	knowledge repositories.KnowledgeRepository
	search    repositories.KnowledgeSearchRepository // optional
	log       zerolog.Logger

	queue chan *ingestionJob
	wg    sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*entities.IngestionTask

	closeOnce sync.Once
}

type ingestionJob struct {
	taskID  string
	entries []*entities.KnowledgeEntry
}

// NewKnowledgeIngestionService creates the service and starts its workers.
// Workers run until Close is called.
func NewKnowledgeIngestionService(
	knowledge repositories.KnowledgeRepository,
	search repositories.KnowledgeSearchRepository,
	workers int,
) *KnowledgeIngestionService {
	if workers <= 0 {
		workers = 1
	}

	s := &KnowledgeIngestionService{
		knowledge: knowledge,
		search:    search,
		log:       log.With().Str("component", "knowledge_ingestion").Logger(),
		queue:     make(chan *ingestionJob, ingestionQueueSize),
		tasks:     make(map[string]*entities.IngestionTask),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// Submit queues a batch of entries for ingestion and returns the task to
// poll. Entries without an ID get one assigned; entries without a specialty
// fall into the general bucket.
func (s *KnowledgeIngestionService) Submit(ctx context.Context, specialty, source string, entries []*entities.KnowledgeEntry) (*entities.IngestionTask, error) {
	if len(entries) == 0 {
		return nil, apperrors.NewValidationError("at least one entry is required")
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.Specialty == "" {
			entry.Specialty = entities.DefaultSpecialty
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
	}

	task := &entities.IngestionTask{
		ID:           uuid.New().String(),
		Specialty:    specialty,
		Source:       source,
		Status:       entities.IngestionPending,
		EntriesTotal: len(entries),
		SubmittedAt:  now,
	}

	// Snapshot before the job is visible to workers; once the send below
	// succeeds a worker may already be mutating the shared task under s.mu.
	s.mu.Lock()
	s.tasks[task.ID] = task
	snapshot := snapshotTask(task)
	s.mu.Unlock()

	select {
	case s.queue <- &ingestionJob{taskID: task.ID, entries: entries}:
	case <-ctx.Done():
		s.failTask(task.ID, ctx.Err().Error())
		return nil, apperrors.NewUnavailableError("ingestion queue unavailable", ctx.Err())
	}

	s.log.Info().
		Str("task_id", task.ID).
		Str("specialty", specialty).
		Int("entries", len(entries)).
		Msg("Ingestion task queued")

	return snapshot, nil
}

// TaskStatus returns the current state of an ingestion task.
func (s *KnowledgeIngestionService) TaskStatus(taskID string) (*entities.IngestionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, apperrors.NewNotFoundError("ingestion task not found")
	}
	return snapshotTask(task), nil
}

// Close stops accepting work and waits for in-flight jobs to drain.
func (s *KnowledgeIngestionService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *KnowledgeIngestionService) worker() {
	defer s.wg.Done()
	for job := range s.queue {
		s.process(job)
	}
}

func (s *KnowledgeIngestionService) process(job *ingestionJob) {
	// Jobs outlive the submitting request, so they run on a background
	// context rather than the caller's.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.markRunning(job.taskID)

	added := 0
	var lastErr error
	for _, entry := range job.entries {
		if err := s.knowledge.Upsert(ctx, entry); err != nil {
			lastErr = err
			s.log.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to store knowledge entry")
			continue
		}
		if s.search != nil {
			// The primary store is the source of truth; a stale index
			// entry is repaired by the next reindex run.
			if err := s.search.Index(ctx, entry); err != nil {
				s.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("Failed to index knowledge entry")
			}
		}
		added++
	}

	s.finishTask(job.taskID, added, lastErr)
}

func (s *KnowledgeIngestionService) markRunning(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[taskID]; ok {
		task.Status = entities.IngestionRunning
		task.StartedAt = time.Now()
	}
}

func (s *KnowledgeIngestionService) finishTask(taskID string, added int, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return
	}
	task.EntriesAdded = added
	task.FinishedAt = time.Now()
	if added == 0 && lastErr != nil {
		task.Status = entities.IngestionFailed
		task.Error = lastErr.Error()
		return
	}
	task.Status = entities.IngestionCompleted
	if lastErr != nil {
		task.Error = lastErr.Error()
	}
}

func (s *KnowledgeIngestionService) failTask(taskID string, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[taskID]; ok {
		task.Status = entities.IngestionFailed
		task.Error = reason
		task.FinishedAt = time.Now()
	}
}

func snapshotTask(task *entities.IngestionTask) *entities.IngestionTask {
	copied := *task
	return &copied
}
