package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wadjakorntonsri/shortlink/pkg/core/clientinfo"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/metrics"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// ClickRecorder persists one click per call. There is no dedup: two
// identical requests are two clicks. now stamps grants at capture time.
type ClickRecorder struct {
	repo ports.ClickRepository
	now  func() time.Time
}

func NewClickRecorder(repo ports.ClickRepository) *ClickRecorder {
	return &ClickRecorder{repo: repo, now: time.Now}
}

// Record stores a click that happened at at, whenever the write runs.
func (r *ClickRecorder) Record(ctx context.Context, linkID string, at time.Time, req clientinfo.Request, geo domain.Geo) (*domain.Click, error) {
	dev := clientinfo.Classify(req.UserAgent)
	click := &domain.Click{
		ID:        uuid.NewString(),
		LinkID:    linkID,
		Timestamp: at.UTC(),
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		Device:    dev.Device,
		Browser:   dev.Browser,
		OS:        dev.OS,
		Country:   geo.Country,
		City:      geo.City,
		Region:    geo.Region,
	}
	if err := r.repo.InsertClick(ctx, click); err != nil {
		return nil, err
	}
	return click, nil
}

// Capturer enriches and records clicks inline. Failures are logged,
// counted and reported, never returned.
type Capturer struct {
	recorder *ClickRecorder
	geo      ports.GeoResolver
	reporter ports.ErrorReporter
	logger   *slog.Logger
}

func NewCapturer(recorder *ClickRecorder, geo ports.GeoResolver, reporter ports.ErrorReporter, logger *slog.Logger) *Capturer {
	return &Capturer{recorder: recorder, geo: geo, reporter: reporter, logger: logger}
}

func (c *Capturer) Capture(ctx context.Context, linkID string, req clientinfo.Request) {
	at := c.recorder.now()
	geo := c.enrich(ctx, req)
	_, err := c.recorder.Record(ctx, linkID, at, req, geo)
	c.observe(ctx, linkID, err)
}

func (c *Capturer) enrich(ctx context.Context, req clientinfo.Request) domain.Geo {
	if req.IP == nil {
		return domain.Geo{}
	}
	return c.geo.Resolve(ctx, *req.IP)
}

func (c *Capturer) observe(ctx context.Context, linkID string, err error) {
	if err == nil {
		metrics.ClicksRecorded.WithLabelValues("ok").Inc()
		return
	}
	metrics.ClicksRecorded.WithLabelValues("error").Inc()
	c.logger.Error("record click", "link_id", linkID, "error", err)
	c.reporter.Report(ctx, err)
}

type clickJob struct {
	ctx    context.Context
	linkID string
	at     time.Time
	req    clientinfo.Request
}

// AsyncCapturer moves enrichment and the click write off the redirect path.
// Delivery is best-effort: a full queue drops the event, and queued events
// are lost if the process dies before Run drains them.
type AsyncCapturer struct {
	capturer *Capturer
	jobs     chan clickJob
	workers  int
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

func NewAsyncCapturer(capturer *Capturer, workers, queueSize int) *AsyncCapturer {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &AsyncCapturer{
		capturer: capturer,
		jobs:     make(chan clickJob, queueSize),
		workers:  workers,
		attempts: 3,
		backoff:  100 * time.Millisecond,
		timeout:  10 * time.Second,
	}
}

func (a *AsyncCapturer) Capture(ctx context.Context, linkID string, req clientinfo.Request) {
	job := clickJob{
		ctx:    context.WithoutCancel(ctx),
		linkID: linkID,
		at:     a.capturer.recorder.now(),
		req:    req,
	}
	select {
	case a.jobs <- job:
	default:
		metrics.ClickQueueDropped.Inc()
		a.capturer.logger.Warn("click queue full, dropping event", "link_id", linkID)
	}
}

// Run processes queued clicks until ctx is done, then drains what is left.
func (a *AsyncCapturer) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i := 0; i < a.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case job := <-a.jobs:
					a.process(job)
				case <-ctx.Done():
					a.drain()
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (a *AsyncCapturer) drain() {
	for {
		select {
		case job := <-a.jobs:
			a.process(job)
		default:
			return
		}
	}
}

func (a *AsyncCapturer) process(job clickJob) {
	ctx, cancel := context.WithTimeout(job.ctx, a.timeout)
	defer cancel()

	geo := a.capturer.enrich(ctx, job.req)

	var err error
retry:
	for attempt := 1; ; attempt++ {
		_, err = a.capturer.recorder.Record(ctx, job.linkID, job.at, job.req, geo)
		if err == nil || attempt >= a.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * a.backoff):
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		}
	}
	a.capturer.observe(ctx, job.linkID, err)
}

var (
	_ ports.ClickCapturer = (*Capturer)(nil)
	_ ports.ClickCapturer = (*AsyncCapturer)(nil)
)
