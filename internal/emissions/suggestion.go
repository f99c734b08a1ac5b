package emissions

// Suggestion is an advisory classification of the current carbon intensity.
type Suggestion string

const (
	SuggestionLow      Suggestion = "LOW"
	SuggestionModerate Suggestion = "MODERATE"
	SuggestionHigh     Suggestion = "HIGH"
)

const moderateFraction = 0.7

// Suggest classifies an intensity against the threshold. Comparisons are
// strict: intensity exactly at the threshold is MODERATE, exactly at 70%
// of it is LOW.
func Suggest(intensity, threshold float64) Suggestion {
	switch {
	case intensity > threshold:
		return SuggestionHigh
	case intensity > threshold*moderateFraction:
		return SuggestionModerate
	default:
		return SuggestionLow
	}
}

// Message returns the advisory text shown on the dashboard.
func (s Suggestion) Message() string {
	switch s {
	case SuggestionHigh:
		return "High carbon intensity. Consider deferring the job."
	case SuggestionModerate:
		return "Moderate carbon intensity. Proceed with awareness."
	default:
		return "Good time to run heavy workloads."
	}
}
