package ports

import (
	"context"

	"github.com/wadjakorntonsri/shortlink/pkg/core/clientinfo"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	// CreateLink inserts the link and claims its codes atomically. A claimed
	// code fails with *domain.CodeConflictError.
	CreateLink(ctx context.Context, link *domain.Link) error
	// FindActiveByCode matches short code or alias on active links only.
	// Missing links return domain.ErrNotFound.
	FindActiveByCode(ctx context.Context, code string) (*domain.Link, error)
	// FindByCode matches regardless of activity.
	FindByCode(ctx context.Context, code string) (*domain.Link, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Link, error)
	Count(ctx context.Context, filters map[string]interface{}) (int64, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
}

// ClickRepository stores the append-only click log.
type ClickRepository interface {
	InsertClick(ctx context.Context, click *domain.Click) error
	// ListClicks returns every click for a link, newest first.
	ListClicks(ctx context.Context, linkID string) ([]domain.Click, error)
}

type Repository interface {
	LinkRepository
	ClickRepository
}

// GeoResolver maps an IP to a coarse location. Implementations never fail;
// unknown locations come back as placeholder values.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) domain.Geo
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// ClickCapturer records a click for a granted resolution. It is best-effort:
// failures are handled internally and never reach the redirecting caller.
type ClickCapturer interface {
	Capture(ctx context.Context, linkID string, req clientinfo.Request)
}

type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, in domain.ShortenInput) (*domain.Link, error)
	BulkShorten(ctx context.Context, urls []string) ([]domain.BulkResult, error)
	Resolve(ctx context.Context, code string, req clientinfo.Request) (domain.Resolution, error)
	VerifyPassword(ctx context.Context, code, password string, req clientinfo.Request) (domain.Resolution, error)
	GetStats(ctx context.Context, code string) (*domain.LinkStats, error)
	ListLinks(ctx context.Context, page, limit int, search string) ([]domain.Link, int64, error)
	DeactivateLink(ctx context.Context, code string) error
}
