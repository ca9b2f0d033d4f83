package assert

import (
	"net/http"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{name: "empty blob", raw: "", wantLen: 0},
		{name: "empty list", raw: `[]`, wantLen: 0},
		{
			name:    "valid list",
			raw:     `[{"kind":"status_code","value":"200"},{"kind":"body_contains","value":"ok"}]`,
			wantLen: 2,
		},
		{name: "unknown kind fails closed", raw: `[{"kind":"regex_match","value":".*"}]`, wantErr: true},
		{name: "status code not numeric", raw: `[{"kind":"status_code","value":"OK"}]`, wantErr: true},
		{name: "header without name", raw: `[{"kind":"header_equals","value":"gzip"}]`, wantErr: true},
		{name: "malformed json", raw: `[{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.raw))

			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() error = nil, want error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("Parse() returned %d assertions, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestEvaluateHTTP(t *testing.T) {
	resp := HTTPResponse{
		StatusCode: 200,
		Body:       `{"status":"ok"}`,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}

	tests := []struct {
		name        string
		assertions  []Assertion
		wantFailure string
		wantErr     bool
	}{
		{
			name:       "all pass",
			assertions: []Assertion{{Kind: KindStatusCode, Value: "200"}, {Kind: KindBodyContains, Value: "ok"}},
		},
		{
			name:        "status mismatch",
			assertions:  []Assertion{{Kind: KindStatusCode, Value: "204"}},
			wantFailure: "expected status code 204, got 200",
		},
		{
			name:        "body missing",
			assertions:  []Assertion{{Kind: KindBodyContains, Value: "healthy"}},
			wantFailure: `body does not contain "healthy"`,
		},
		{
			name:       "header equals",
			assertions: []Assertion{{Kind: KindHeaderEquals, Key: "Content-Type", Value: "application/json"}},
		},
		{
			name:        "header mismatch",
			assertions:  []Assertion{{Kind: KindHeaderEquals, Key: "Content-Type", Value: "text/html"}},
			wantFailure: `expected header Content-Type to equal "text/html", got "application/json"`,
		},
		{
			name:       "dns assertion on http probe fails closed",
			assertions: []Assertion{{Kind: KindDNSRecordEquals, Key: "A", Value: "1.2.3.4"}},
			wantErr:    true,
		},
		{
			name:       "unknown kind fails closed, not pass",
			assertions: []Assertion{{Kind: Kind("bogus"), Value: "x"}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure, err := EvaluateHTTP(tt.assertions, resp)

			if tt.wantErr {
				if err == nil {
					t.Fatal("EvaluateHTTP() error = nil, want error")
				}
				return
			}

			if err != nil {
				t.Fatalf("EvaluateHTTP() error = %v", err)
			}
			if failure != tt.wantFailure {
				t.Errorf("EvaluateHTTP() failure = %q, want %q", failure, tt.wantFailure)
			}
		})
	}
}

func TestEvaluateDNS(t *testing.T) {
	records := map[string][]string{
		"A":     {"93.184.216.34"},
		"CNAME": {"edge.example.net."},
	}

	failure, err := EvaluateDNS([]Assertion{{Kind: KindDNSRecordEquals, Key: "a", Value: "93.184.216.34"}}, records)
	if err != nil || failure != "" {
		t.Fatalf("EvaluateDNS() = %q, %v, want pass", failure, err)
	}

	failure, err = EvaluateDNS([]Assertion{{Kind: KindDNSRecordEquals, Key: "A", Value: "1.1.1.1"}}, records)
	if err != nil {
		t.Fatalf("EvaluateDNS() error = %v", err)
	}
	if failure == "" {
		t.Error("EvaluateDNS() should fail for missing record value")
	}

	if _, err := EvaluateDNS([]Assertion{{Kind: KindStatusCode, Value: "200"}}, records); err == nil {
		t.Error("EvaluateDNS() should fail closed for non-dns assertion")
	}
}
