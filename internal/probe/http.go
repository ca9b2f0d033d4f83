package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openstatus-dev/openstatus/internal/assert"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// Response bodies larger than this are truncated before assertion checks.
const maxBodyBytes = 1 << 20

func checkHTTP(ctx context.Context, spec Spec) (types.ProbeResult, error) {
	client := &http.Client{
		Timeout: spec.timeout(),
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.Target, nil)
	if err != nil {
		return types.ProbeResult{}, &ConfigError{Detail: fmt.Sprintf("invalid monitor url: %v", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result(spec, start, 0, err.Error()), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return result(spec, start, resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err)), nil
	}

	failure, err := assert.EvaluateHTTP(spec.Assertions, assert.HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Header:     resp.Header,
	})
	if err != nil {
		return types.ProbeResult{}, &ConfigError{Detail: err.Error()}
	}

	if failure == "" && len(spec.Assertions) == 0 && resp.StatusCode >= 400 {
		failure = fmt.Sprintf("unexpected status code: %s", resp.Status)
	}

	return result(spec, start, resp.StatusCode, failure), nil
}
