package domain

// Urgency levels a summary may carry.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// SummaryArtifact is the validated result of a summarization call. It is only
// ever constructed complete; a reply missing any field is rejected outright.
type SummaryArtifact struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	ActionRequired bool     `json:"action_required"`
	UrgencyLevel   string   `json:"urgency_level"`
	SuggestedTone  string   `json:"suggested_tone"`
	Confidence     float64  `json:"confidence"`
}

// ResponseArtifact is the validated result of a response generation call.
type ResponseArtifact struct {
	Body       string  `json:"body"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
}
