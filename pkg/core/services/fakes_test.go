package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
)

// memRepo mirrors the SQLite repository's contract in memory.
type memRepo struct {
	mu     sync.Mutex
	links  map[string]*domain.Link
	codes  map[string]string
	clicks []domain.Click

	findErr    error
	insertErrs int
	creates    int
}

func newMemRepo() *memRepo {
	return &memRepo{links: map[string]*domain.Link{}, codes: map[string]string{}}
}

func (m *memRepo) CreateLink(_ context.Context, link *domain.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	for _, code := range link.Codes() {
		if _, taken := m.codes[code]; taken {
			return &domain.CodeConflictError{Code: code}
		}
	}
	for _, code := range link.Codes() {
		m.codes[code] = link.ID
	}
	cp := *link
	m.links[link.ID] = &cp
	return nil
}

func (m *memRepo) FindActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	l, err := m.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (m *memRepo) FindByCode(_ context.Context, code string) (*domain.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.links[id]
	return &cp, nil
}

func (m *memRepo) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsActive = active
	return nil
}

func (m *memRepo) List(_ context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Link, error) {
	all := m.filtered(filters)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memRepo) Count(_ context.Context, filters map[string]interface{}) (int64, error) {
	return int64(len(m.filtered(filters))), nil
}

func (m *memRepo) filtered(filters map[string]interface{}) []domain.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	search, _ := filters["search"].(string)

	var out []domain.Link
	for _, l := range m.links {
		if search != "" && !strings.Contains(l.OriginalURL, search) && !strings.Contains(l.Code(), search) {
			continue
		}
		cp := *l
		for _, c := range m.clicks {
			if c.LinkID == l.ID {
				cp.Clicks++
			}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRepo) Dump(ctx context.Context) ([]domain.Link, error) {
	return m.filtered(nil), nil
}

func (m *memRepo) InsertClick(_ context.Context, c *domain.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErrs > 0 {
		m.insertErrs--
		return errors.New("database is locked")
	}
	m.clicks = append(m.clicks, *c)
	return nil
}

func (m *memRepo) ListClicks(_ context.Context, linkID string) ([]domain.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Click
	for i := len(m.clicks) - 1; i >= 0; i-- {
		if m.clicks[i].LinkID == linkID {
			out = append(out, m.clicks[i])
		}
	}
	return out, nil
}

func (m *memRepo) clickCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clicks)
}

// plainHasher keeps tests fast; bcrypt is covered in the hasher package.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }

func (plainHasher) Compare(hash, p string) bool { return hash == "plain:"+p }

type stubGeo struct {
	mu    sync.Mutex
	calls int
}

func (g *stubGeo) Resolve(_ context.Context, ip string) domain.Geo {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	country, city, region := "US", "Mountain View", "California"
	return domain.Geo{Country: &country, City: &city, Region: &region}
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// sequenceCodes hands out codes in order and repeats the last one.
type sequenceCodes struct {
	codes []string
	i     int
}

func (s *sequenceCodes) Generate() (string, error) {
	code := s.codes[s.i]
	if s.i < len(s.codes)-1 {
		s.i++
	}
	return code, nil
}
