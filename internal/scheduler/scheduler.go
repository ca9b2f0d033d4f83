// Package scheduler drives the probe loop: one ticker per active monitor,
// each tick feeding a probe result through the status engine and, when a
// state edge is crossed, fanning the event out to the monitor's notifiers.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/assert"
	"github.com/openstatus-dev/openstatus/internal/engine"
	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/probe"
	"github.com/openstatus-dev/openstatus/internal/types"
	"github.com/openstatus-dev/openstatus/internal/ws"
)

type Scheduler struct {
	jobs         map[uint]*monitorJob // monitor ID -> job
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	engine       *engine.Engine
	dashboardURL string
	log          *slog.Logger
}

type monitorJob struct {
	monitor models.Monitor
	ticker  *time.Ticker
	cancel  context.CancelFunc
}

// statusStore persists status transitions through the shared handle. The
// engine writes here before trusting its in-memory state.
type statusStore struct{}

func (statusStore) UpdateMonitorStatus(ctx context.Context, monitorID uint, status types.MonitorStatus) error {
	return db.DB.WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", monitorID).Update("status", status).Error
}

func NewScheduler(dashboardURL string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:         make(map[uint]*monitorJob),
		ctx:          ctx,
		cancel:       cancel,
		engine:       engine.New(statusStore{}, log),
		dashboardURL: dashboardURL,
		log:          log,
	}
}

// Start loads all active monitors and begins scheduling.
func (s *Scheduler) Start() error {
	var monitorsList []models.Monitor

	if err := db.DB.Where("active = ?", true).Find(&monitorsList).Error; err != nil {
		return err
	}

	for _, monitor := range monitorsList {
		s.AddMonitor(monitor)
	}

	s.log.Info("scheduler started", slog.Int("monitors", len(monitorsList)))
	return nil
}

// Stop gracefully shuts down all monitor jobs.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		job.ticker.Stop()
		job.cancel()
	}

	s.jobs = make(map[uint]*monitorJob)
	s.log.Info("scheduler stopped")
}

// AddMonitor starts probing a monitor, replacing any existing job for it.
func (s *Scheduler) AddMonitor(monitor models.Monitor) {
	if !monitor.Active || monitor.Periodicity <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingJob, exists := s.jobs[monitor.ID]; exists {
		existingJob.ticker.Stop()
		existingJob.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	ticker := time.NewTicker(time.Duration(monitor.Periodicity) * time.Second)

	job := &monitorJob{
		monitor: monitor,
		ticker:  ticker,
		cancel:  jobCancel,
	}

	s.jobs[monitor.ID] = job

	go func() {
		monitorCopy := monitor
		s.executeCheck(jobCtx, monitorCopy)
		s.runMonitor(jobCtx, job)
	}()

	s.log.Info("monitor scheduled",
		slog.Uint64("monitor_id", uint64(monitor.ID)),
		slog.String("name", monitor.Name),
	)
}

// RemoveMonitor stops probing a monitor and drops its engine state.
func (s *Scheduler) RemoveMonitor(monitorID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[monitorID]; exists {
		job.ticker.Stop()
		job.cancel()
		delete(s.jobs, monitorID)
		s.engine.Forget(monitorID)
		s.log.Info("monitor removed", slog.Uint64("monitor_id", uint64(monitorID)))
	}
}

// UpdateMonitor restarts the job with fresh configuration.
func (s *Scheduler) UpdateMonitor(monitor models.Monitor) {
	s.AddMonitor(monitor)
}

func (s *Scheduler) runMonitor(ctx context.Context, job *monitorJob) {
	defer job.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-job.ticker.C:
			s.mu.RLock()
			monitorCopy := job.monitor
			s.mu.RUnlock()

			s.executeCheck(ctx, monitorCopy)
		}
	}
}

// executeCheck runs one probe, records the check, and pushes any resulting
// state transition through dispatch. A misconfigured monitor aborts the
// cycle without touching its persisted status.
func (s *Scheduler) executeCheck(ctx context.Context, monitor models.Monitor) {
	assertions, err := assert.Parse(monitor.Assertions)
	if err != nil {
		s.log.Error("malformed assertions, skipping check",
			slog.Uint64("monitor_id", uint64(monitor.ID)),
			slog.Any("error", err),
		)
		return
	}

	region := ""
	if len(monitor.Regions) > 0 {
		region = monitor.Regions[0]
	}

	result, err := probe.Check(ctx, probe.Spec{
		JobType:    monitor.JobType,
		Target:     monitor.URL,
		TimeoutMS:  monitor.TimeoutMS,
		Region:     region,
		Assertions: assertions,
	})
	if err != nil {
		s.log.Error("probe configuration fault",
			slog.Uint64("monitor_id", uint64(monitor.ID)),
			slog.Any("error", err),
		)
		return
	}

	s.storeCheckResult(monitor.ID, result)

	snapshot := engine.Snapshot{
		ID:              monitor.ID,
		WorkspaceID:     monitor.WorkspaceID,
		Name:            monitor.Name,
		URL:             monitor.URL,
		Status:          monitor.Status,
		DegradedAfterMS: monitor.DegradedAfterMS,
		Regions:         monitor.Regions,
	}

	event, err := s.engine.Process(ctx, snapshot, result)
	if err != nil {
		s.log.Error("failed to process probe result",
			slog.Uint64("monitor_id", uint64(monitor.ID)),
			slog.Any("error", err),
		)
		return
	}

	if event == nil {
		return
	}

	s.trackIncident(monitor, event)
	s.dispatchEvent(ctx, monitor, snapshot, event)

	ws.BroadcastStatusChange(monitor.WorkspaceID, ws.StatusChange{
		Type:      "status_change",
		MonitorID: monitor.ID,
		Status:    string(statusForEvent(event)),
		Event:     string(event.Kind),
	})
}

func statusForEvent(event *engine.Event) types.MonitorStatus {
	switch event.Kind {
	case types.EventAlert:
		return types.MonitorError
	case types.EventDegraded:
		return types.MonitorDegraded
	default:
		return types.MonitorActive
	}
}

func (s *Scheduler) storeCheckResult(monitorID uint, result types.ProbeResult) {
	check := models.MonitorCheck{
		MonitorID:  monitorID,
		Region:     result.Region,
		Success:    result.Success,
		StatusCode: result.StatusCode,
		LatencyMS:  result.LatencyMS,
		Message:    result.Error,
		CheckedAt:  time.UnixMilli(result.Timestamp),
	}

	if err := db.DB.Create(&check).Error; err != nil {
		s.log.Error("failed to store check result",
			slog.Uint64("monitor_id", uint64(monitorID)),
			slog.Any("error", err),
		)
	}
}

// openingIncident builds the incident record an alert creates, including
// the first entry of its append-only update history.
func openingIncident(monitor models.Monitor, event *engine.Event, now time.Time) models.Incident {
	message := event.ErrorMessage
	if message == "" {
		message = monitor.Name + " is down"
	}

	return models.Incident{
		MonitorID:   monitor.ID,
		WorkspaceID: monitor.WorkspaceID,
		Title:       monitor.Name + " is down",
		Status:      types.ReportInvestigating,
		StartedAt:   &now,
		Updates: []models.IncidentUpdate{{
			Status:  types.ReportInvestigating,
			Message: message,
			Date:    now,
		}},
	}
}

// resolutionUpdate is the history entry appended when recovery closes an
// incident.
func resolutionUpdate(incidentID uint, monitorName string, now time.Time) models.IncidentUpdate {
	return models.IncidentUpdate{
		IncidentID: incidentID,
		Status:     types.ReportResolved,
		Message:    monitorName + " recovered",
		Date:       now,
	}
}

// trackIncident opens an incident on alert and resolves open ones on
// recovery, appending a history update either way. Incident bookkeeping
// failing must not block notification delivery, so errors are logged and
// dispatch proceeds.
func (s *Scheduler) trackIncident(monitor models.Monitor, event *engine.Event) {
	now := time.Now()

	switch event.Kind {
	case types.EventAlert:
		incident := openingIncident(monitor, event, now)
		if err := db.DB.Create(&incident).Error; err != nil {
			s.log.Error("failed to open incident",
				slog.Uint64("monitor_id", uint64(monitor.ID)),
				slog.Any("error", err),
			)
		}
	case types.EventRecovery:
		var open []models.Incident

		if err := db.DB.Where("monitor_id = ? AND resolved_at IS NULL", monitor.ID).Find(&open).Error; err != nil {
			s.log.Error("failed to load open incidents",
				slog.Uint64("monitor_id", uint64(monitor.ID)),
				slog.Any("error", err),
			)
			return
		}

		for _, incident := range open {
			err := db.DB.Model(&models.Incident{}).
				Where("id = ?", incident.ID).
				Updates(map[string]interface{}{
					"status":      types.ReportResolved,
					"resolved_at": now,
				}).Error
			if err != nil {
				s.log.Error("failed to resolve incident",
					slog.Uint64("incident_id", uint64(incident.ID)),
					slog.Any("error", err),
				)
				continue
			}

			update := resolutionUpdate(incident.ID, monitor.Name, now)
			if err := db.DB.Create(&update).Error; err != nil {
				s.log.Error("failed to append incident update",
					slog.Uint64("incident_id", uint64(incident.ID)),
					slog.Any("error", err),
				)
			}
		}
	}
}

// dispatchEvent fans the event out to every subscribed notifier and records
// one notification row per channel outcome.
func (s *Scheduler) dispatchEvent(ctx context.Context, monitor models.Monitor, snapshot engine.Snapshot, event *engine.Event) {
	dispatcher := notify.Default()
	if dispatcher == nil {
		return
	}

	var notifiers []models.Notifier

	if err := db.DB.Model(&monitor).Association("Notifiers").Find(&notifiers); err != nil {
		s.log.Error("failed to load notifiers",
			slog.Uint64("monitor_id", uint64(monitor.ID)),
			slog.Any("error", err),
		)
		return
	}

	if len(notifiers) == 0 {
		return
	}

	targets := make([]notify.Target, 0, len(notifiers))
	for _, notifier := range notifiers {
		config, err := types.ParseNotifierConfig(notifier.Provider, notifier.Config)
		if err != nil {
			s.log.Warn("skipping notifier with invalid config",
				slog.Uint64("notifier_id", uint64(notifier.ID)),
				slog.Any("error", err),
			)
			continue
		}

		targets = append(targets, notify.Target{
			NotifierID: notifier.ID,
			Provider:   notifier.Provider,
			Config:     config,
		})
	}

	if len(targets) == 0 {
		return
	}

	data := notify.BuildMessageData(event, snapshot, s.dashboardURL)
	results := dispatcher.Dispatch(ctx, event, data, targets)

	now := time.Now()

	for _, res := range results {
		notification := models.Notification{
			WorkspaceID: monitor.WorkspaceID,
			NotifierID:  res.NotifierID,
			MonitorID:   monitor.ID,
			EventID:     event.ID,
			EventKind:   event.Kind,
			Provider:    res.Provider,
			State:       string(res.Result.State),
			Detail:      res.Result.Detail,
		}

		if res.Result.State == notify.StateDelivered {
			notification.SentAt = &now
		}

		if err := db.DB.Create(&notification).Error; err != nil {
			s.log.Error("failed to record notification",
				slog.String("event_id", event.ID),
				slog.Uint64("notifier_id", uint64(res.NotifierID)),
				slog.Any("error", err),
			)
		}
	}
}

// Global scheduler instance.
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler.
func Initialize(dashboardURL string, log *slog.Logger) error {
	globalScheduler = NewScheduler(dashboardURL, log)
	return globalScheduler.Start()
}

// Shutdown stops the global scheduler.
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}

// AddMonitor adds a monitor to the global scheduler.
func AddMonitor(monitor models.Monitor) {
	if globalScheduler != nil {
		globalScheduler.AddMonitor(monitor)
	}
}

// RemoveMonitor removes a monitor from the global scheduler.
func RemoveMonitor(monitorID uint) {
	if globalScheduler != nil {
		globalScheduler.RemoveMonitor(monitorID)
	}
}

// UpdateMonitor updates a monitor in the global scheduler.
func UpdateMonitor(monitor models.Monitor) {
	if globalScheduler != nil {
		globalScheduler.UpdateMonitor(monitor)
	}
}
