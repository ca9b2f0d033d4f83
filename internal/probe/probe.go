// Package probe performs the actual health checks behind a monitor. A
// failed check is a valid probe result; a malformed monitor configuration
// is an error and never counts as a pass.
package probe

import (
	"context"
	"time"

	"github.com/openstatus-dev/openstatus/internal/assert"
	"github.com/openstatus-dev/openstatus/internal/types"
)

const defaultTimeoutMS = 30000

// Spec is what one check needs to know about its monitor. Target is the
// URL for http, host:port for tcp, and the domain for dns.
type Spec struct {
	JobType    types.JobType
	Target     string
	TimeoutMS  int
	Region     string
	Assertions []assert.Assertion
}

func (s Spec) timeout() time.Duration {
	if s.TimeoutMS <= 0 {
		return defaultTimeoutMS * time.Millisecond
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Check runs one probe. The returned error covers configuration faults
// only (unknown job type, malformed assertions); transport failures come
// back as an unsuccessful result.
func Check(ctx context.Context, spec Spec) (types.ProbeResult, error) {
	switch spec.JobType {
	case types.JobHTTP:
		return checkHTTP(ctx, spec)
	case types.JobTCP:
		return checkTCP(ctx, spec)
	case types.JobDNS:
		return checkDNS(ctx, spec)
	default:
		return types.ProbeResult{}, &ConfigError{Detail: "unsupported job type: " + string(spec.JobType)}
	}
}

// ConfigError marks a probe that could not run because the monitor itself
// is misconfigured.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return e.Detail
}

func result(spec Spec, start time.Time, statusCode int, failure string) types.ProbeResult {
	return types.ProbeResult{
		Success:    failure == "",
		StatusCode: statusCode,
		LatencyMS:  time.Since(start).Milliseconds(),
		Region:     spec.Region,
		Error:      failure,
		Timestamp:  start.UnixMilli(),
	}
}
