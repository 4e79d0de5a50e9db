// Package analytics folds a link's click log into the stats served by the
// dashboard. Aggregation is a pure function of its inputs and recomputes from
// the full event set on every call, so cost grows with clicks per link.
package analytics

import (
	"net/url"
	"sort"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
)

const (
	UnknownCountry = "Unknown"
	UnknownBrowser = "Unknown"
	DefaultDevice  = "desktop"
	DirectReferrer = "Direct"

	Window      = 30 * 24 * time.Hour
	RecentLimit = 50
	dayLayout   = "2006-01-02"
)

// Aggregate computes stats for link from clicks as of now. Clicks may be in
// any order.
func Aggregate(link *domain.Link, clicks []domain.Click, now time.Time) domain.LinkStats {
	countries := map[string]int64{}
	browsers := map[string]int64{}
	devices := map[string]int64{}
	referrers := map[string]int64{}
	daily := map[string]int64{}

	since := now.Add(-Window)
	for _, c := range clicks {
		countries[valueOr(c.Country, UnknownCountry)]++
		browsers[valueOr(c.Browser, UnknownBrowser)]++
		devices[valueOr(c.Device, DefaultDevice)]++
		referrers[ReferrerHost(c.Referrer)]++

		if !c.Timestamp.Before(since) {
			daily[c.Timestamp.UTC().Format(dayLayout)]++
		}
	}

	return domain.LinkStats{
		Link:           summarize(link),
		TotalClicks:    int64(len(clicks)),
		CountryStats:   ranked(countries),
		BrowserStats:   ranked(browsers),
		DeviceStats:    ranked(devices),
		ReferrerStats:  ranked(referrers),
		ClicksOverTime: timeline(daily),
		RecentClicks:   recent(clicks),
	}
}

// ReferrerHost reduces a referrer URL to its hostname. Missing or unparseable
// referrers count as direct traffic.
func ReferrerHost(ref *string) string {
	if ref == nil || *ref == "" {
		return DirectReferrer
	}
	u, err := url.Parse(*ref)
	if err != nil || u.Hostname() == "" {
		return DirectReferrer
	}
	return u.Hostname()
}

// ranked sorts by count descending. Ties are ordered by name so repeated
// calls return identical slices.
func ranked(counts map[string]int64) []domain.NameValue {
	out := make([]domain.NameValue, 0, len(counts))
	for name, value := range counts {
		out = append(out, domain.NameValue{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func timeline(daily map[string]int64) []domain.DailyClicks {
	out := make([]domain.DailyClicks, 0, len(daily))
	for date, n := range daily {
		out = append(out, domain.DailyClicks{Date: date, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func recent(clicks []domain.Click) []domain.RecentClick {
	sorted := make([]domain.Click, len(clicks))
	copy(sorted, clicks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}

	out := make([]domain.RecentClick, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, domain.RecentClick{
			Timestamp: c.Timestamp,
			Country:   c.Country,
			City:      c.City,
			Device:    c.Device,
			Browser:   c.Browser,
			Referrer:  c.Referrer,
		})
	}
	return out
}

func summarize(link *domain.Link) domain.LinkSummary {
	if link == nil {
		return domain.LinkSummary{}
	}
	return domain.LinkSummary{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		CustomAlias: link.CustomAlias,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
	}
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
