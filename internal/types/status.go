package types

// MonitorStatus is the externally visible health of a monitor.
type MonitorStatus string

const (
	MonitorActive   MonitorStatus = "active"
	MonitorDegraded MonitorStatus = "degraded"
	MonitorError    MonitorStatus = "error"
)

// EventKind classifies a detected state transition.
type EventKind string

const (
	EventAlert    EventKind = "alert"
	EventRecovery EventKind = "recovery"
	EventDegraded EventKind = "degraded"
	EventTest     EventKind = "test"
)

// JobType is the probe protocol of a monitor.
type JobType string

const (
	JobHTTP JobType = "http"
	JobTCP  JobType = "tcp"
	JobDNS  JobType = "dns"
)

func ValidJobType(t JobType) bool {
	switch t {
	case JobHTTP, JobTCP, JobDNS:
		return true
	}
	return false
}

// ReportStatus is the lifecycle status of a status report or incident update.
type ReportStatus string

const (
	ReportInvestigating ReportStatus = "investigating"
	ReportIdentified    ReportStatus = "identified"
	ReportMonitoring    ReportStatus = "monitoring"
	ReportResolved      ReportStatus = "resolved"
)

func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportInvestigating, ReportIdentified, ReportMonitoring, ReportResolved:
		return true
	}
	return false
}

// Priority ranks report statuses for display tie-breaks. Higher ranks first,
// so a late-arriving "investigating" still displays above an earlier
// "resolved" when both exist.
func (s ReportStatus) Priority() int {
	switch s {
	case ReportInvestigating:
		return 3
	case ReportIdentified:
		return 2
	case ReportMonitoring:
		return 1
	case ReportResolved:
		return 0
	}
	return -1
}
