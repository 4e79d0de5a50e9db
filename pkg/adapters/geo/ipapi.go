// Package geo resolves client IPs to a coarse location using an ip-api.com
// compatible HTTP endpoint.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/metrics"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

const (
	Unknown = "Unknown"

	localCountry = "Local"
	localCity    = "localhost"
	localRegion  = "Development"
)

type IPAPI struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
}

// NewIPAPI returns a resolver querying baseURL/{ip}. Every lookup is bounded
// by timeout.
func NewIPAPI(baseURL string, timeout time.Duration, logger *slog.Logger) *IPAPI {
	return &IPAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Resolve never fails: loopback addresses map to a fixed development triple
// and lookup failures map to Unknown.
func (g *IPAPI) Resolve(ctx context.Context, ip string) domain.Geo {
	if isLoopback(ip) {
		metrics.GeoLookups.WithLabelValues("local").Inc()
		return triple(localCountry, localCity, localRegion)
	}

	geo, err := g.lookup(ctx, ip)
	if err != nil {
		metrics.GeoLookups.WithLabelValues("error").Inc()
		g.logger.WarnContext(ctx, "geo lookup failed", "ip", ip, "error", err)
		return triple(Unknown, Unknown, Unknown)
	}
	metrics.GeoLookups.WithLabelValues("ok").Inc()
	return geo
}

func (g *IPAPI) lookup(ctx context.Context, ip string) (domain.Geo, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=status,country,city,regionName", g.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Geo{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Geo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Geo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Geo{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Status == "fail" {
		return domain.Geo{}, fmt.Errorf("lookup rejected for %s", ip)
	}

	return triple(or(body.Country), or(body.City), or(body.RegionName)), nil
}

func isLoopback(ip string) bool {
	if ip == "" || ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

func triple(country, city, region string) domain.Geo {
	return domain.Geo{Country: &country, City: &city, Region: &region}
}

func or(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

var _ ports.GeoResolver = (*IPAPI)(nil)
