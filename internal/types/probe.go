package types

// ProbeResult is a single raw observation produced by a checker for one
// monitor in one region.
type ProbeResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	LatencyMS  int64  `json:"latencyMs"`
	Region     string `json:"region"`
	Error      string `json:"error,omitempty"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
}
