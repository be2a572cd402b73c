package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

// Session is an in-progress questionnaire held in memory.
type Session struct {
	ID          string    `json:"id"`
	Catalog     string    `json:"catalog"`
	Answers     Answers   `json:"answers"`
	Answered    int       `json:"answered"`
	Total       int       `json:"total"`
	Submitted   bool      `json:"submitted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// CatalogSource resolves a catalog id.
type CatalogSource func(id string) (*catalog.Catalog, error)

// SessionService collects answers for ephemeral sessions and scores them on
// submit. Nothing is persisted; idle sessions are dropped after the TTL.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	catalogs CatalogSource
	cache    ProfileCache
	ttl      time.Duration
	now      func() time.Time
	idGen    func() string
}

func NewSessionService(catalogs CatalogSource, cache ProfileCache, ttl time.Duration) *SessionService {
	if catalogs == nil {
		catalogs = catalog.Builtin
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &SessionService{
		sessions: map[string]*Session{},
		catalogs: catalogs,
		cache:    cache,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func() string { return uuid.NewString() },
	}
}

func (s *SessionService) lookupCatalog(id string) (*catalog.Catalog, error) {
	cat, err := s.catalogs(id)
	if err != nil || cat == nil {
		return nil, NewNotFoundError(fmt.Sprintf("catalog %q not found", id))
	}
	return cat, nil
}

func (s *SessionService) Create(catalogID string) (*Session, error) {
	cat, err := s.lookupCatalog(catalogID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		ID:        s.idGen(),
		Catalog:   cat.ID(),
		Answers:   Answers{},
		Total:     cat.ItemCount(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return snapshot(sess), nil
}

// Get returns a copy of the session.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, NewNotFoundError("session not found")
	}
	return snapshot(sess), nil
}

// SetAnswers merges answers into the session. Blank values clear an answer.
// Item ids outside the catalog and malformed values are rejected and leave
// the session unchanged.
func (s *SessionService) SetAnswers(id string, answers Answers) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, NewNotFoundError("session not found")
	}
	if sess.Submitted {
		return nil, NewConflictError("session already submitted")
	}
	cat, err := s.lookupCatalog(sess.Catalog)
	if err != nil {
		return nil, err
	}
	for _, itemID := range answers.ItemIDs() {
		if !cat.HasItem(itemID) {
			return nil, NewInvalidError(fmt.Sprintf("item %d is not part of %s", itemID, cat.ID()))
		}
		if _, _, err := parseAnswer(itemID, answers[itemID], cat.MaxValue()); err != nil {
			return nil, err
		}
	}
	for itemID, v := range answers {
		if _, present, _ := parseAnswer(itemID, v, cat.MaxValue()); present {
			sess.Answers[itemID] = v
		} else {
			delete(sess.Answers, itemID)
		}
	}
	sess.Answered = len(sess.Answers)
	sess.UpdatedAt = s.now()
	return snapshot(sess), nil
}

// Submit scores the session and caches the profile. The session is marked
// submitted under the same lock that snapshots its answers, so answers set
// while scoring runs are rejected; a failed scoring reopens it.
func (s *SessionService) Submit(ctx context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, NewNotFoundError("session not found")
	}
	answers := copyAnswers(sess.Answers)
	catalogID := sess.Catalog
	wasSubmitted, prevAt, prevUpdated := sess.Submitted, sess.SubmittedAt, sess.UpdatedAt
	sess.Submitted = true
	sess.SubmittedAt = s.now()
	sess.UpdatedAt = sess.SubmittedAt
	s.mu.Unlock()

	profile, err := s.score(catalogID, answers)
	if err != nil {
		s.mu.Lock()
		if sess, ok := s.sessions[id]; ok {
			sess.Submitted, sess.SubmittedAt, sess.UpdatedAt = wasSubmitted, prevAt, prevUpdated
		}
		s.mu.Unlock()
		return nil, err
	}
	if err := s.cache.Set(ctx, id, profile, s.ttl); err != nil {
		log.Printf("[session] cache profile %s: %v", id, err)
	}
	return profile, nil
}

func (s *SessionService) score(catalogID string, answers Answers) (*Profile, error) {
	cat, err := s.lookupCatalog(catalogID)
	if err != nil {
		return nil, err
	}
	return ScoreQuestionnaire(cat, answers)
}

// Result returns the profile of a submitted session, from the cache when
// possible and otherwise by scoring the stored answers again.
func (s *SessionService) Result(ctx context.Context, id string) (*Profile, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !sess.Submitted {
		return nil, NewConflictError("session not submitted")
	}
	if p, err := s.cache.Get(ctx, id); err != nil {
		log.Printf("[session] cache lookup %s: %v", id, err)
	} else if p != nil {
		return p, nil
	}
	p, err := s.score(sess.Catalog, sess.Answers)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, id, p, s.ttl); err != nil {
		log.Printf("[session] cache profile %s: %v", id, err)
	}
	return p, nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) Sweep(ctx context.Context) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	var expired []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, id := range expired {
		if err := s.cache.Delete(ctx, id); err != nil {
			log.Printf("[session] cache delete %s: %v", id, err)
		}
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(ctx); n > 0 {
				log.Printf("[session] swept %d idle sessions", n)
			}
		}
	}
}

// IDs lists live session ids, sorted.
func (s *SessionService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func snapshot(sess *Session) *Session {
	cp := *sess
	cp.Answers = copyAnswers(sess.Answers)
	return &cp
}

func copyAnswers(a Answers) Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
