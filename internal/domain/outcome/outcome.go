package outcome

// ErrorKind is the closed set of failure categories shared by every operation.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindRateLimit  ErrorKind = "rate_limit"
	KindService    ErrorKind = "service"
	KindNotFound   ErrorKind = "not_found"
	KindDatabase   ErrorKind = "database"
	KindUnexpected ErrorKind = "unexpected"
)

// Outcome is the result contract returned by every public operation.
// A success never carries Error/ErrorKind; a failure never carries
// Data/AnalysisID/SaveWarning. Use the constructors to keep that true.
type Outcome struct {
	Success     bool           `json:"success"`
	Data        map[string]any `json:"data,omitempty"`
	AnalysisID  string         `json:"analysis_id,omitempty"`
	SaveWarning string         `json:"save_warning,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorKind   ErrorKind      `json:"error_kind,omitempty"`
}

// OK wraps a successful result whose persistence also succeeded.
func OK(data map[string]any, analysisID string) Outcome {
	return Outcome{Success: true, Data: data, AnalysisID: analysisID}
}

// Degraded wraps a successful result whose persistence failed. The
// inference work is already paid for, so it is returned with a warning
// instead of being discarded.
func Degraded(data map[string]any, warning string) Outcome {
	return Outcome{Success: true, Data: data, SaveWarning: warning}
}

// Fail builds a failure outcome.
func Fail(kind ErrorKind, msg string) Outcome {
	return Outcome{Success: false, Error: msg, ErrorKind: kind}
}
