package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink/pkg/core/clientinfo"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
)

func TestClickRecorderRecord(t *testing.T) {
	repo := newMemRepo()
	rec := NewClickRecorder(repo)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("ICT", 7*3600))

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	ref := "https://t.co/abc"
	country := "TH"

	click, err := rec.Record(context.Background(), "link-1", fixed,
		clientinfo.Request{UserAgent: &ua, Referrer: &ref},
		domain.Geo{Country: &country})

	require.NoError(t, err)
	assert.NotEmpty(t, click.ID)
	assert.Equal(t, "link-1", click.LinkID)
	assert.Equal(t, fixed.UTC(), click.Timestamp)
	assert.Nil(t, click.IP)
	assert.Equal(t, &ref, click.Referrer)
	require.NotNil(t, click.Device)
	assert.Equal(t, clientinfo.DeviceMobile, *click.Device)
	assert.Equal(t, "TH", *click.Country)
	assert.Nil(t, click.City)
	assert.Len(t, repo.clicks, 1)
}

func TestClickRecorderNoDedup(t *testing.T) {
	repo := newMemRepo()
	rec := NewClickRecorder(repo)

	for i := 0; i < 2; i++ {
		_, err := rec.Record(context.Background(), "link-1", time.Now(), clientinfo.Request{}, domain.Geo{})
		require.NoError(t, err)
	}

	require.Len(t, repo.clicks, 2)
	assert.NotEqual(t, repo.clicks[0].ID, repo.clicks[1].ID)
}

func TestCaptureSkipsGeoWithoutIP(t *testing.T) {
	repo := newMemRepo()
	geo := &stubGeo{}
	c := NewCapturer(NewClickRecorder(repo), geo, &recordingReporter{}, logging.Discard())

	c.Capture(context.Background(), "link-1", clientinfo.Request{})
	assert.Zero(t, geo.calls)
	assert.Nil(t, repo.clicks[0].Country)

	c.Capture(context.Background(), "link-1", visitor())
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, "US", *repo.clicks[1].Country)
}

func TestCaptureReportsWriteFailure(t *testing.T) {
	repo := newMemRepo()
	repo.insertErrs = 1
	reporter := &recordingReporter{}
	c := NewCapturer(NewClickRecorder(repo), &stubGeo{}, reporter, logging.Discard())

	c.Capture(context.Background(), "link-1", visitor())

	assert.Zero(t, repo.clickCount())
	assert.Equal(t, 1, reporter.count())
}

func newAsync(repo *memRepo, reporter *recordingReporter, workers, queue int) *AsyncCapturer {
	c := NewCapturer(NewClickRecorder(repo), &stubGeo{}, reporter, logging.Discard())
	a := NewAsyncCapturer(c, workers, queue)
	a.backoff = time.Millisecond
	return a
}

func TestAsyncCapturerDrainsOnShutdown(t *testing.T) {
	repo := newMemRepo()
	a := newAsync(repo, &recordingReporter{}, 2, 16)

	for i := 0; i < 5; i++ {
		a.Capture(context.Background(), "link-1", visitor())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 5, repo.clickCount())
}

func TestAsyncCapturerOutlivesRequestContext(t *testing.T) {
	repo := newMemRepo()
	a := newAsync(repo, &recordingReporter{}, 1, 4)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	a.Capture(reqCtx, "link-1", visitor())
	cancelReq()

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx) }()
	defer cancel()

	assert.Eventually(t, func() bool { return repo.clickCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestAsyncCapturerRetries(t *testing.T) {
	repo := newMemRepo()
	repo.insertErrs = 2
	reporter := &recordingReporter{}
	a := newAsync(repo, reporter, 1, 4)

	a.Capture(context.Background(), "link-1", visitor())
	a.drain()

	assert.Equal(t, 1, repo.clickCount())
	assert.Zero(t, reporter.count())
}

func TestAsyncCapturerGivesUp(t *testing.T) {
	repo := newMemRepo()
	repo.insertErrs = 10
	reporter := &recordingReporter{}
	a := newAsync(repo, reporter, 1, 4)

	a.Capture(context.Background(), "link-1", visitor())
	a.drain()

	assert.Zero(t, repo.clickCount())
	assert.Equal(t, 1, reporter.count())
	assert.Equal(t, 7, repo.insertErrs)
}

func TestAsyncCapturerDropsWhenFull(t *testing.T) {
	repo := newMemRepo()
	a := newAsync(repo, &recordingReporter{}, 1, 1)

	a.Capture(context.Background(), "link-1", visitor())
	a.Capture(context.Background(), "link-2", visitor())

	assert.Len(t, a.jobs, 1)
	a.drain()
	require.Equal(t, 1, repo.clickCount())
	assert.Equal(t, "link-1", repo.clicks[0].LinkID)
}

func TestAsyncCapturerKeepsGrantTime(t *testing.T) {
	repo := newMemRepo()
	a := newAsync(repo, &recordingReporter{}, 1, 4)
	now := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	a.capturer.recorder.now = func() time.Time { return now }

	a.Capture(context.Background(), "link-1", visitor())
	// The worker only gets to the job after midnight.
	now = now.Add(2 * time.Minute)
	a.drain()

	require.Equal(t, 1, repo.clickCount())
	assert.Equal(t, time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC), repo.clicks[0].Timestamp)
}

func TestAsyncCapturerRetryKeepsGrantTime(t *testing.T) {
	repo := newMemRepo()
	repo.insertErrs = 2
	a := newAsync(repo, &recordingReporter{}, 1, 4)
	granted := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a.capturer.recorder.now = func() time.Time {
		calls++
		return granted.Add(time.Duration(calls-1) * time.Hour)
	}

	a.Capture(context.Background(), "link-1", visitor())
	a.drain()

	require.Equal(t, 1, repo.clickCount())
	assert.Equal(t, granted, repo.clicks[0].Timestamp)
}
