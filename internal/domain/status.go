package domain

import "strings"

// Feedback subjects and judgments.
const (
	FeedbackForecast = "forecast"
	FeedbackAnomaly  = "anomaly"

	FeedbackAgree    = "agree"
	FeedbackDisagree = "disagree"

	// FeedbackGeneral is the subject used when feedback is not about one item.
	FeedbackGeneral = "general"
)

var feedbackValueAliases = map[string]string{
	"agree":    FeedbackAgree,
	"yes":      FeedbackAgree,
	"up":       FeedbackAgree,
	"disagree": FeedbackDisagree,
	"no":       FeedbackDisagree,
	"down":     FeedbackDisagree,
}

// ParseFeedbackValue maps a button label to its stored value (case-insensitive).
func ParseFeedbackValue(label string) (string, bool) {
	v, ok := feedbackValueAliases[strings.ToLower(strings.TrimSpace(label))]
	return v, ok
}

// DefaultCategories are offered by the entry form.
var DefaultCategories = []string{
	"Grains",
	"Snacks",
	"Dairy",
	"Beverages",
	"Vegetables",
	"Fruits",
	"Frozen",
}

// Pipeline stage names.
const (
	StageCleaning    = "cleaning"
	StageForecasting = "forecasting"
	StageAnomaly     = "anomaly"
)

// Pipeline run statuses.
const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusSkipped    = "skipped"
	RunStatusFailed     = "failed"
)
