package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/openstatus-dev/openstatus/internal/assert"
	"github.com/openstatus-dev/openstatus/internal/types"
)

func checkDNS(ctx context.Context, spec Spec) (types.ProbeResult, error) {
	recordTypes := make([]string, 0, len(spec.Assertions))

	for _, a := range spec.Assertions {
		if a.Kind != assert.KindDNSRecordEquals {
			return types.ProbeResult{}, &ConfigError{
				Detail: fmt.Sprintf("assertion kind %q is not applicable to dns probes", a.Kind),
			}
		}
		recordTypes = append(recordTypes, strings.ToUpper(a.Key))
	}

	// Without assertions a dns probe just verifies the domain resolves.
	if len(recordTypes) == 0 {
		recordTypes = append(recordTypes, "A")
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, spec.timeout())
	defer cancel()

	resolver := &net.Resolver{}
	records := make(map[string][]string)

	for _, rt := range recordTypes {
		if _, ok := records[rt]; ok {
			continue
		}

		values, err := lookup(ctx, resolver, rt, spec.Target)
		if err != nil {
			if isUnsupportedRecordType(err) {
				return types.ProbeResult{}, &ConfigError{Detail: err.Error()}
			}
			return result(spec, start, 0, err.Error()), nil
		}
		records[rt] = values
	}

	if len(spec.Assertions) == 0 {
		failure := ""
		if len(records["A"]) == 0 {
			failure = fmt.Sprintf("no A records found for %s", spec.Target)
		}
		return result(spec, start, 0, failure), nil
	}

	failure, err := assert.EvaluateDNS(spec.Assertions, records)
	if err != nil {
		return types.ProbeResult{}, &ConfigError{Detail: err.Error()}
	}

	return result(spec, start, 0, failure), nil
}

type unsupportedRecordTypeError struct {
	recordType string
}

func (e *unsupportedRecordTypeError) Error() string {
	return "unsupported DNS record type: " + e.recordType
}

func isUnsupportedRecordType(err error) bool {
	_, ok := err.(*unsupportedRecordTypeError)
	return ok
}

func lookup(ctx context.Context, resolver *net.Resolver, recordType, domain string) ([]string, error) {
	switch recordType {
	case "A":
		ips, err := resolver.LookupIPAddr(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve A record for %s: %v", domain, err)
		}
		var values []string
		for _, ip := range ips {
			if ip.IP.To4() != nil {
				values = append(values, ip.IP.String())
			}
		}
		return values, nil
	case "AAAA":
		ips, err := resolver.LookupIPAddr(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve AAAA record for %s: %v", domain, err)
		}
		var values []string
		for _, ip := range ips {
			if ip.IP.To4() == nil {
				values = append(values, ip.IP.String())
			}
		}
		return values, nil
	case "CNAME":
		cname, err := resolver.LookupCNAME(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve CNAME for %s: %v", domain, err)
		}
		return []string{strings.TrimSuffix(cname, ".")}, nil
	case "MX":
		mxRecords, err := resolver.LookupMX(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve MX records for %s: %v", domain, err)
		}
		var values []string
		for _, mx := range mxRecords {
			values = append(values, strings.TrimSuffix(mx.Host, "."))
		}
		return values, nil
	case "TXT":
		txtRecords, err := resolver.LookupTXT(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve TXT records for %s: %v", domain, err)
		}
		return txtRecords, nil
	case "NS":
		nsRecords, err := resolver.LookupNS(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve NS records for %s: %v", domain, err)
		}
		var values []string
		for _, ns := range nsRecords {
			values = append(values, strings.TrimSuffix(ns.Host, "."))
		}
		return values, nil
	default:
		return nil, &unsupportedRecordTypeError{recordType: recordType}
	}
}
