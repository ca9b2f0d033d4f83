// Package assert evaluates the typed predicates a monitor declares against
// a probe response. Malformed or unknown assertions are configuration
// errors, never a pass.
package assert

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type Kind string

const (
	KindStatusCode      Kind = "status_code"
	KindBodyContains    Kind = "body_contains"
	KindHeaderEquals    Kind = "header_equals"
	KindDNSRecordEquals Kind = "dns_record_equals"
)

// Assertion is one ordered predicate. Key is the header name for
// header_equals and the record type (A, AAAA, CNAME, MX, TXT, NS) for
// dns_record_equals; it is unused otherwise.
type Assertion struct {
	Kind  Kind   `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// Parse decodes and validates an assertion list. An empty blob is a valid
// empty list.
func Parse(raw []byte) ([]Assertion, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var assertions []Assertion

	if err := json.Unmarshal(raw, &assertions); err != nil {
		return nil, fmt.Errorf("malformed assertions: %w", err)
	}

	for i, a := range assertions {
		switch a.Kind {
		case KindStatusCode:
			if _, err := strconv.Atoi(a.Value); err != nil {
				return nil, fmt.Errorf("assertion %d: status_code value %q is not a number", i, a.Value)
			}
		case KindBodyContains:
			if a.Value == "" {
				return nil, fmt.Errorf("assertion %d: body_contains requires a value", i)
			}
		case KindHeaderEquals:
			if a.Key == "" {
				return nil, fmt.Errorf("assertion %d: header_equals requires a header name", i)
			}
		case KindDNSRecordEquals:
			if a.Key == "" {
				return nil, fmt.Errorf("assertion %d: dns_record_equals requires a record type", i)
			}
		default:
			return nil, fmt.Errorf("assertion %d: unknown kind %q", i, a.Kind)
		}
	}

	return assertions, nil
}

// HTTPResponse is the view of a probe response assertions run against.
type HTTPResponse struct {
	StatusCode int
	Body       string
	Header     http.Header
}

// EvaluateHTTP runs every assertion against the response in order. It
// returns a human-readable description of the first failing assertion, or ""
// when all pass. dns_record_equals is not applicable to HTTP probes and
// fails closed as a configuration error.
func EvaluateHTTP(assertions []Assertion, resp HTTPResponse) (string, error) {
	for _, a := range assertions {
		switch a.Kind {
		case KindStatusCode:
			want, err := strconv.Atoi(a.Value)
			if err != nil {
				return "", fmt.Errorf("status_code value %q is not a number", a.Value)
			}
			if resp.StatusCode != want {
				return fmt.Sprintf("expected status code %d, got %d", want, resp.StatusCode), nil
			}
		case KindBodyContains:
			if !strings.Contains(resp.Body, a.Value) {
				return fmt.Sprintf("body does not contain %q", a.Value), nil
			}
		case KindHeaderEquals:
			if got := resp.Header.Get(a.Key); got != a.Value {
				return fmt.Sprintf("expected header %s to equal %q, got %q", a.Key, a.Value, got), nil
			}
		case KindDNSRecordEquals:
			return "", fmt.Errorf("dns_record_equals is not applicable to http probes")
		default:
			return "", fmt.Errorf("unknown assertion kind %q", a.Kind)
		}
	}

	return "", nil
}

// EvaluateDNS runs dns_record_equals assertions against resolved records,
// keyed by record type. Any non-DNS assertion on a DNS monitor is a
// configuration error.
func EvaluateDNS(assertions []Assertion, records map[string][]string) (string, error) {
	for _, a := range assertions {
		if a.Kind != KindDNSRecordEquals {
			return "", fmt.Errorf("assertion kind %q is not applicable to dns probes", a.Kind)
		}

		recordType := strings.ToUpper(a.Key)
		values, ok := records[recordType]

		if !ok || len(values) == 0 {
			return fmt.Sprintf("no %s records found", recordType), nil
		}

		found := false
		for _, v := range values {
			if strings.EqualFold(v, a.Value) {
				found = true
				break
			}
		}

		if !found {
			return fmt.Sprintf("expected %s record %q not found", recordType, a.Value), nil
		}
	}

	return "", nil
}
