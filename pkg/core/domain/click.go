package domain

import "time"

// Click is one recorded redirect through a link. Clicks are append-only.
type Click struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"link_id"`
	Timestamp time.Time `json:"timestamp"`

	IP        *string `json:"ip,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
	Referrer  *string `json:"referrer,omitempty"`

	Device  *string `json:"device,omitempty"`
	Browser *string `json:"browser,omitempty"`
	OS      *string `json:"os,omitempty"`

	Country *string `json:"country,omitempty"`
	City    *string `json:"city,omitempty"`
	Region  *string `json:"region,omitempty"`
}

// Geo is the coarse location derived from a client IP.
type Geo struct {
	Country *string `json:"country,omitempty"`
	City    *string `json:"city,omitempty"`
	Region  *string `json:"region,omitempty"`
}

// LinkStats represents aggregated statistics for a link
type LinkStats struct {
	Link           LinkSummary   `json:"link"`
	TotalClicks    int64         `json:"total_clicks"`
	CountryStats   []NameValue   `json:"country_stats"`
	BrowserStats   []NameValue   `json:"browser_stats"`
	DeviceStats    []NameValue   `json:"device_stats"`
	ReferrerStats  []NameValue   `json:"referrer_stats"`
	ClicksOverTime []DailyClicks `json:"clicks_over_time"`
	RecentClicks   []RecentClick `json:"recent_clicks"`
}

type LinkSummary struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	CustomAlias *string    `json:"custom_alias,omitempty"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type DailyClicks struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Clicks int64  `json:"clicks"`
}

// RecentClick is the display-safe projection of a Click.
type RecentClick struct {
	Timestamp time.Time `json:"timestamp"`
	Country   *string   `json:"country,omitempty"`
	City      *string   `json:"city,omitempty"`
	Device    *string   `json:"device,omitempty"`
	Browser   *string   `json:"browser,omitempty"`
	Referrer  *string   `json:"referrer,omitempty"`
}
