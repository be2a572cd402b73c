package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is an exported file handed to remote storage.
type Artifact struct {
	ID          string    `json:"id" bson:"_id"`
	SessionID   string    `json:"session_id" bson:"sessionId"`
	Filename    string    `json:"filename" bson:"filename"`
	ContentType string    `json:"content_type" bson:"contentType"`
	Size        int       `json:"size" bson:"size"`
	Data        []byte    `json:"-" bson:"data"`
	CreatedAt   time.Time `json:"created_at" bson:"createdAt"`
}

// ArtifactStore persists artifacts and returns a location for them.
type ArtifactStore interface {
	Save(ctx context.Context, a *Artifact) (string, error)
}

type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadDone    UploadStatus = "done"
	UploadFailed  UploadStatus = "failed"
)

// UploadJob is the pollable state of one upload.
type UploadJob struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	Filename   string       `json:"filename"`
	Status     UploadStatus `json:"status"`
	Location   string       `json:"location,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
}

// UploadService runs uploads in the background. Callers get a job id right
// away and poll it; a failed upload never affects the scoring result.
type UploadService struct {
	store   ArtifactStore
	timeout time.Duration
	now     func() time.Time
	idGen   func() string

	mu   sync.RWMutex
	jobs map[string]*UploadJob
	wg   sync.WaitGroup
}

func NewUploadService(store ArtifactStore, timeout time.Duration) *UploadService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UploadService{
		store:   store,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return uuid.NewString() },
		jobs:    map[string]*UploadJob{},
	}
}

// Start queues data for upload under filename and returns the pending job.
func (s *UploadService) Start(sessionID, filename, contentType string, data []byte) (*UploadJob, error) {
	if s.store == nil {
		return nil, NewUnavailableError("remote storage not configured")
	}
	if filename == "" || len(data) == 0 {
		return nil, NewInvalidError("filename and data required")
	}
	now := s.now()
	job := &UploadJob{ID: s.idGen(), SessionID: sessionID, Filename: filename, Status: UploadPending, CreatedAt: now}
	art := &Artifact{
		ID:          job.ID,
		SessionID:   sessionID,
		Filename:    filename,
		ContentType: contentType,
		Size:        len(data),
		Data:        append([]byte(nil), data...),
		CreatedAt:   now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(job.ID, art)
	cp := *job
	return &cp, nil
}

func (s *UploadService) run(jobID string, art *Artifact) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	loc, err := s.store.Save(ctx, art)

	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.FinishedAt = s.now()
	if err != nil {
		job.Status = UploadFailed
		job.Error = err.Error()
		log.Printf("[upload] %s (%s) failed: %v", jobID, art.Filename, err)
		return
	}
	job.Status = UploadDone
	job.Location = loc
	log.Printf("[upload] %s stored %s (%d bytes)", jobID, art.Filename, art.Size)
}

func (s *UploadService) Get(id string) (*UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("upload %s not found", id))
	}
	cp := *job
	return &cp, nil
}

// Wait blocks until every started upload has finished.
func (s *UploadService) Wait() {
	s.wg.Wait()
}
