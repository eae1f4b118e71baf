package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"podclip-backend/internal/models"
	"podclip-backend/internal/services"
	"podclip-backend/internal/storage"
)

// memStore stands in for the users, uploaded_files, jobs and clips tables.
// RecordClips and DeductCredits mirror the guards in repository.JobRepo
// (unique job_id/s3_key, step-guarded charge, zero floor); keep them in step.
type memStore struct {
	mu       sync.Mutex
	credits  map[uuid.UUID]int
	uploads  map[uuid.UUID]*models.UploadedFile
	statuses map[uuid.UUID][]string
	steps    map[uuid.UUID]string
	clips    map[uuid.UUID][]string
	charges  int

	// failures maps an operation name to the error it returns the next time
	// it is called.
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		credits:  make(map[uuid.UUID]int),
		uploads:  make(map[uuid.UUID]*models.UploadedFile),
		statuses: make(map[uuid.UUID][]string),
		steps:    make(map[uuid.UUID]string),
		clips:    make(map[uuid.UUID][]string),
		failures: make(map[string]error),
	}
}

func (s *memStore) failOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *memStore) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

func (s *memStore) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.Account{UserID: userID, Credits: c}, nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.uploads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("status:" + status); err != nil {
		return err
	}
	if f, ok := s.uploads[id]; ok {
		f.Status = status
	}
	s.statuses[id] = append(s.statuses[id], status)
	return nil
}

func (s *memStore) UpdateStep(ctx context.Context, id uuid.UUID, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[id] = step
	return nil
}

func (s *memStore) MarkChecked(ctx context.Context, id uuid.UUID, priorCredits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[id] = models.JobChecked
	return nil
}

func (s *memStore) RecordClips(ctx context.Context, j *models.Job, keys []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("record"); err != nil {
		return 0, err
	}
	existing := make(map[string]bool)
	for _, k := range s.clips[j.ID] {
		existing[k] = true
	}
	for _, k := range keys {
		if !existing[k] {
			s.clips[j.ID] = append(s.clips[j.ID], k)
			existing[k] = true
		}
	}
	s.steps[j.ID] = models.JobClipsRecorded
	return len(s.clips[j.ID]), nil
}

func (s *memStore) DeductCredits(ctx context.Context, j *models.Job, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("deduct"); err != nil {
		return err
	}
	if s.steps[j.ID] != models.JobClipsRecorded {
		return nil
	}
	s.steps[j.ID] = models.JobCreditsDeducted
	s.charges++
	c := s.credits[j.UserID] - amount
	if c < 0 {
		c = 0
	}
	s.credits[j.UserID] = c
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	byPref  map[string][]storage.Object
	listed  []string
	listErr error
}

func (f *fakeObjects) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, prefix)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byPref[prefix], nil
}

type fakeCompute struct {
	mu     sync.Mutex
	calls  []services.ComputeRequest
	result *services.ComputeResult
	err    error
}

func (f *fakeCompute) Process(ctx context.Context, req services.ComputeRequest) (*services.ComputeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &services.ComputeResult{StatusCode: 200}, nil
	}
	return f.result, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (f *fakePublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func objectsAt(base time.Time, keys ...string) []storage.Object {
	objs := make([]storage.Object, 0, len(keys))
	for i, k := range keys {
		objs = append(objs, storage.Object{Key: k, LastModified: base.Add(time.Duration(i) * time.Second)})
	}
	return objs
}

var errBoom = errors.New("boom")
