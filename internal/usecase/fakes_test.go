package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalPipeline/internal/domain"
)

type fakeSource struct {
	mu         sync.Mutex
	candidates []domain.Candidate
	failed     int
}

func (f *fakeSource) set(cands ...domain.Candidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = cands
}

func (f *fakeSource) FetchAll(context.Context) ([]domain.Candidate, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Candidate(nil), f.candidates...), f.failed
}

// fakeStore mirrors the forward-only upsert of the Postgres repository.
type fakeStore struct {
	mu           sync.Mutex
	rows         map[string]domain.Article
	hideExisting bool
	existingErr  error
	failIDs      map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]domain.Article{}, failIDs: map[string]bool{}}
}

func (s *fakeStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existingErr != nil {
		return nil, s.existingErr
	}
	out := map[string]bool{}
	if s.hideExisting {
		return out, nil
	}
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeStore) Upsert(_ context.Context, a domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := a.Validate(); err != nil {
		return err
	}
	if s.failIDs[a.ID] {
		return errors.New("check constraint violated")
	}
	if prev, ok := s.rows[a.ID]; ok {
		if !prev.Status.CanTransition(a.Status) {
			a.Status = prev.Status
		}
		a.CreatedAt = prev.CreatedAt
	}
	s.rows[a.ID] = a
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *fakeStore) byURL(url string) (domain.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.URL == url {
			return a, true
		}
	}
	return domain.Article{}, false
}

type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	byTitle  map[string]domain.Verdict
	errs     map[string]error
	gotInstr string
}

func (f *fakeScorer) Score(_ context.Context, c domain.Candidate, instructions string) (domain.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotInstr = instructions
	if err, ok := f.errs[c.Title]; ok {
		return domain.Verdict{}, err
	}
	if v, ok := f.byTitle[c.Title]; ok {
		return v, nil
	}
	return domain.Verdict{Score: 65, Importance: domain.ImportanceNormal, Category: c.Source.Category}, nil
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu    sync.Mutex
	posts []string
	err   error
}

func (n *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.posts = append(n.posts, digest)
	return nil
}

type fakeLock struct {
	held     bool
	err      error
	released bool
}

func (l *fakeLock) Acquire(context.Context) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, true, nil
}

var fixedNow = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

func candidateAt(url, title string, trust int) domain.Candidate {
	return domain.Candidate{
		URL:         url,
		Title:       title,
		Body:        "body of " + title,
		Source:      domain.Source{URL: "https://lab.example.com/feed", Name: "Lab", Category: domain.CategoryResearch, Trust: trust},
		PublishedAt: fixedNow.Add(-time.Hour),
		FetchedAt:   fixedNow,
	}
}
