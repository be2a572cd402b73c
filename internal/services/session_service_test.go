package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

func newTestSessions(ttl time.Duration) (*SessionService, *time.Time) {
	now := time.Unix(0, 0).UTC()
	svc := NewSessionService(nil, nil, ttl)
	svc.now = func() time.Time { return now }
	n := 0
	svc.idGen = func() string { n++; return "s" + strconv.Itoa(n) }
	return svc, &now
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessions(time.Hour)

	sess, err := svc.Create("dass21")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, 21, sess.Total)
	assert.Zero(t, sess.Answered)

	answers := Answers{}
	for i := 1; i <= 21; i++ {
		answers[i] = "1"
	}
	sess, err = svc.SetAnswers("s1", answers)
	require.NoError(t, err)
	assert.Equal(t, 21, sess.Answered)

	sess, err = svc.SetAnswers("s1", Answers{21: ""})
	require.NoError(t, err)
	assert.Equal(t, 20, sess.Answered)

	_, err = svc.Result(ctx, "s1")
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorConflict, se.Code)

	p, err := svc.Submit(ctx, "s1")
	require.NoError(t, err)
	dep, _ := p.Facet("Depressione")
	assert.Equal(t, 6, dep.RawScore)

	got, err := svc.Result(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = svc.SetAnswers("s1", Answers{1: "2"})
	se, _ = AsServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, ErrorConflict, se.Code)
}

func TestSessionRejectsBadAnswers(t *testing.T) {
	svc, _ := newTestSessions(time.Hour)
	_, err := svc.Create("pid5")
	require.NoError(t, err)

	_, err = svc.SetAnswers("s1", Answers{1: "1", 2: "7"})
	assert.True(t, errors.Is(err, ErrInvalidAnswer))

	_, err = svc.SetAnswers("s1", Answers{500: "1"})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)

	sess, err := svc.Get("s1")
	require.NoError(t, err)
	assert.Zero(t, sess.Answered)
}

func TestSessionNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessions(time.Hour)
	for _, err := range []error{
		func() error { _, err := svc.Get("nope"); return err }(),
		func() error { _, err := svc.SetAnswers("nope", Answers{}); return err }(),
		func() error { _, err := svc.Submit(ctx, "nope"); return err }(),
		func() error { _, err := svc.Create("mmpi"); return err }(),
	} {
		se, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, ErrorNotFound, se.Code)
	}
}

func TestSessionGetReturnsCopy(t *testing.T) {
	svc, _ := newTestSessions(time.Hour)
	_, err := svc.Create("dass21")
	require.NoError(t, err)
	sess, _ := svc.Get("s1")
	sess.Answers[1] = "3"
	again, _ := svc.Get("s1")
	assert.Empty(t, again.Answers)
}

func TestSessionResultRescoresOnCacheMiss(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessions(time.Hour)
	_, err := svc.Create("pid5")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, svc.cache.Delete(ctx, "s1"))

	p, err := svc.Result(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, p.OverallValid)
}

func TestSessionSweep(t *testing.T) {
	ctx := context.Background()
	svc, now := newTestSessions(time.Minute)
	_, err := svc.Create("dass21")
	require.NoError(t, err)
	*now = now.Add(30 * time.Second)
	_, err = svc.Create("dass21")
	require.NoError(t, err)

	*now = now.Add(45 * time.Second)
	assert.Equal(t, 1, svc.Sweep(ctx))
	assert.Equal(t, []string{"s2"}, svc.IDs())
}

func TestSubmitFreezesAnswersWhileScoring(t *testing.T) {
	ctx := context.Background()
	var svc *SessionService
	var lateErr error
	scoring := false
	svc = NewSessionService(func(id string) (*catalog.Catalog, error) {
		if scoring {
			scoring = false
			_, lateErr = svc.SetAnswers("s1", Answers{3: "3"})
		}
		return catalog.Builtin(id)
	}, nil, time.Hour)
	svc.idGen = func() string { return "s1" }

	_, err := svc.Create("dass21")
	require.NoError(t, err)
	_, err = svc.SetAnswers("s1", Answers{3: "1"})
	require.NoError(t, err)

	scoring = true
	p, err := svc.Submit(ctx, "s1")
	require.NoError(t, err)

	se, ok := AsServiceError(lateErr)
	require.True(t, ok, "late answer was accepted")
	assert.Equal(t, ErrorConflict, se.Code)

	sess, err := svc.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "1", sess.Answers[3])
	got, err := svc.Result(ctx, "s1")
	require.NoError(t, err)
	dep, _ := got.Facet("Depressione")
	assert.Equal(t, 1, dep.RawScore)
	assert.Same(t, p, got)
}

func TestSubmitReopensSessionWhenScoringFails(t *testing.T) {
	ctx := context.Background()
	fail := false
	svc := NewSessionService(func(id string) (*catalog.Catalog, error) {
		if fail {
			return nil, errors.New("catalog unavailable")
		}
		return catalog.Builtin(id)
	}, nil, time.Hour)
	svc.idGen = func() string { return "s1" }

	_, err := svc.Create("dass21")
	require.NoError(t, err)
	fail = true
	_, err = svc.Submit(ctx, "s1")
	require.Error(t, err)
	fail = false

	sess, err := svc.Get("s1")
	require.NoError(t, err)
	assert.False(t, sess.Submitted)
	_, err = svc.SetAnswers("s1", Answers{1: "2"})
	assert.NoError(t, err)
}
