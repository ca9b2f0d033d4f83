package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/openstatus-dev/openstatus/internal/types"
)

func checkTCP(ctx context.Context, spec Spec) (types.ProbeResult, error) {
	if !strings.Contains(spec.Target, ":") {
		return types.ProbeResult{}, &ConfigError{Detail: fmt.Sprintf("tcp target %q must be host:port", spec.Target)}
	}

	if len(spec.Assertions) > 0 {
		return types.ProbeResult{}, &ConfigError{Detail: "assertions are not applicable to tcp probes"}
	}

	start := time.Now()

	dialer := &net.Dialer{Timeout: spec.timeout()}

	conn, err := dialer.DialContext(ctx, "tcp", spec.Target)
	if err != nil {
		return result(spec, start, 0, fmt.Sprintf("failed to connect to %s: %v", spec.Target, err)), nil
	}
	conn.Close()

	return result(spec, start, 0, ""), nil
}
