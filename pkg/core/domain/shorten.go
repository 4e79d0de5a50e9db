package domain

// ShortenInput carries a create-link request. Zero values mean "not set".
type ShortenInput struct {
	URL           string
	Alias         string
	Password      string
	ExpiresInDays int
}

// BulkResult is one entry of a bulk shorten. Link is nil when Error is set.
type BulkResult struct {
	Original string `json:"original"`
	Link     *Link  `json:"link,omitempty"`
	Error    string `json:"error,omitempty"`
}
