package domain

// Outcome is the terminal state of a resolution attempt.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeExpired
	OutcomePasswordRequired
	OutcomeInvalidPassword
	OutcomeGranted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExpired:
		return "expired"
	case OutcomePasswordRequired:
		return "password_required"
	case OutcomeInvalidPassword:
		return "invalid_password"
	case OutcomeGranted:
		return "granted"
	default:
		return "not_found"
	}
}

// Resolution is the gatekeeper's decision. URL is set only when Granted.
type Resolution struct {
	Outcome Outcome
	URL     string
	Link    *Link
}
