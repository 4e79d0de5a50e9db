package domain

import "time"

// Link represents a shortened URL
type Link struct {
	ID           string     `json:"id"`
	ShortCode    string     `json:"short_code"`
	CustomAlias  *string    `json:"custom_alias,omitempty"`
	OriginalURL  string     `json:"original_url"`
	PasswordHash *string    `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	Clicks       int64      `json:"clicks,omitempty"` // Aggregated count, list views only
}

// Code returns the code handed out to users: the alias when one was chosen.
func (l *Link) Code() string {
	if l.CustomAlias != nil && *l.CustomAlias != "" {
		return *l.CustomAlias
	}
	return l.ShortCode
}

// Codes returns every code that resolves to this link.
func (l *Link) Codes() []string {
	codes := []string{l.ShortCode}
	if l.CustomAlias != nil && *l.CustomAlias != "" && *l.CustomAlias != l.ShortCode {
		codes = append(codes, *l.CustomAlias)
	}
	return codes
}

func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

func (l *Link) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
