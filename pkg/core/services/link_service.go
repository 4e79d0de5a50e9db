package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wadjakorntonsri/shortlink/pkg/core/analytics"
	"github.com/wadjakorntonsri/shortlink/pkg/core/clientinfo"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/core/shortcode"
	"github.com/wadjakorntonsri/shortlink/pkg/metrics"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

const (
	MaxURLLength    = 2048
	MaxBulkURLs     = 100
	MaxExpiryDays   = 3650
	maxCodeAttempts = 5
	defaultPageSize = 10
	maxPageSize     = 100
)

type codeSource interface {
	Generate() (string, error)
}

type LinkService struct {
	repo     ports.Repository
	hasher   ports.PasswordHasher
	capturer ports.ClickCapturer
	codes    codeSource
	now      func() time.Time
}

type Option func(*LinkService)

// WithClock replaces time.Now for expiry decisions and stats windows.
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

func WithCodeLength(n int) Option {
	return func(s *LinkService) { s.codes = shortcode.NewGenerator(n) }
}

func withCodeSource(c codeSource) Option {
	return func(s *LinkService) { s.codes = c }
}

func NewLinkService(repo ports.Repository, hasher ports.PasswordHasher, capturer ports.ClickCapturer, opts ...Option) *LinkService {
	s := &LinkService{
		repo:     repo,
		hasher:   hasher,
		capturer: capturer,
		codes:    shortcode.NewGenerator(shortcode.DefaultLength),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LinkService) Shorten(ctx context.Context, in domain.ShortenInput) (*domain.Link, error) {
	originalURL, err := normalizeURL(in.URL)
	if err != nil {
		return nil, err
	}

	alias := strings.TrimSpace(in.Alias)
	if alias != "" && !shortcode.ValidateAlias(alias) {
		return nil, domain.ErrInvalidAlias
	}
	if in.ExpiresInDays < 0 || in.ExpiresInDays > MaxExpiryDays {
		return nil, fmt.Errorf("%w: expiresInDays must be between 0 and %d", domain.ErrValidation, MaxExpiryDays)
	}

	now := s.now().UTC()
	link := &domain.Link{
		OriginalURL: originalURL,
		IsActive:    true,
		CreatedAt:   now,
	}
	if alias != "" {
		link.CustomAlias = &alias
	}
	if in.ExpiresInDays > 0 {
		expiresAt := now.AddDate(0, 0, in.ExpiresInDays)
		link.ExpiresAt = &expiresAt
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		link.PasswordHash = &hash
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}
		link.ID = uuid.NewString()
		link.ShortCode = code

		err = s.repo.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}

		var conflict *domain.CodeConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		if alias != "" && conflict.Code == alias {
			return nil, domain.ErrAliasTaken
		}
	}

	return nil, fmt.Errorf("no free short code after %d attempts: %w", maxCodeAttempts, domain.ErrConflict)
}

func (s *LinkService) BulkShorten(ctx context.Context, urls []string) ([]domain.BulkResult, error) {
	if len(urls) == 0 || len(urls) > MaxBulkURLs {
		return nil, fmt.Errorf("%w: between 1 and %d urls required", domain.ErrValidation, MaxBulkURLs)
	}

	results := make([]domain.BulkResult, 0, len(urls))
	for _, raw := range urls {
		link, err := s.Shorten(ctx, domain.ShortenInput{URL: raw})
		if err != nil {
			if !domain.IsValidation(err) {
				return nil, err
			}
			results = append(results, domain.BulkResult{Original: raw, Error: err.Error()})
			continue
		}
		results = append(results, domain.BulkResult{Original: raw, Link: link})
	}
	return results, nil
}

// Resolve runs lookup, expiration, password and grant in that order. Only a
// granted resolution captures a click.
func (s *LinkService) Resolve(ctx context.Context, code string, req clientinfo.Request) (domain.Resolution, error) {
	if code == "" {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeNotFound}), nil
	}

	link, err := s.repo.FindActiveByCode(ctx, code)
	if domain.IsNotFound(err) {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeNotFound}), nil
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("lookup %q: %w", code, err)
	}

	if link.IsExpired(s.now()) {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeExpired, Link: link}), nil
	}
	if link.HasPassword() {
		return s.decide(domain.Resolution{Outcome: domain.OutcomePasswordRequired, Link: link}), nil
	}

	s.capturer.Capture(ctx, link.ID, req)
	return s.decide(domain.Resolution{Outcome: domain.OutcomeGranted, URL: link.OriginalURL, Link: link}), nil
}

// VerifyPassword grants a password-gated link. Expiration is not checked.
func (s *LinkService) VerifyPassword(ctx context.Context, code, password string, req clientinfo.Request) (domain.Resolution, error) {
	if code == "" {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeNotFound}), nil
	}

	link, err := s.repo.FindActiveByCode(ctx, code)
	if domain.IsNotFound(err) {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeNotFound}), nil
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("lookup %q: %w", code, err)
	}
	if !link.HasPassword() {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeNotFound}), nil
	}

	if !s.hasher.Compare(*link.PasswordHash, password) {
		return s.decide(domain.Resolution{Outcome: domain.OutcomeInvalidPassword}), nil
	}

	s.capturer.Capture(ctx, link.ID, req)
	return s.decide(domain.Resolution{Outcome: domain.OutcomeGranted, URL: link.OriginalURL, Link: link}), nil
}

func (s *LinkService) decide(r domain.Resolution) domain.Resolution {
	metrics.Resolutions.WithLabelValues(r.Outcome.String()).Inc()
	return r
}

func (s *LinkService) GetStats(ctx context.Context, code string) (*domain.LinkStats, error) {
	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	clicks, err := s.repo.ListClicks(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}

	stats := analytics.Aggregate(link, clicks, s.now())
	return &stats, nil
}

func (s *LinkService) ListLinks(ctx context.Context, page, limit int, search string) ([]domain.Link, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit

	filters := map[string]interface{}{
		"search": search,
	}

	links, err := s.repo.List(ctx, limit, offset, filters)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	return links, count, nil
}

// DeactivateLink soft-disables a link. Its clicks and stats remain.
func (s *LinkService) DeactivateLink(ctx context.Context, code string) error {
	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.repo.SetActive(ctx, link.ID, false)
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxURLLength {
		return "", domain.ErrInvalidURL
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", domain.ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.ErrInvalidURL
	}
	if u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	return raw, nil
}

var _ ports.LinkService = (*LinkService)(nil)
