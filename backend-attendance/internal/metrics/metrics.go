package metrics

import (
	"context"
	"sync"

	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Ledger counters
	RegistrationsTotal *telemetry.Counter
	ParticipantsTotal  *telemetry.Counter

	// Check-in counters, labelled by outcome code
	CheckInsTotal *telemetry.Counter

	// Job counters
	JobsPublished *telemetry.Counter
	JobsProcessed *telemetry.Counter
	JobsFailed    *telemetry.Counter

	// Histograms
	ReportDuration *telemetry.Histogram
	JobDuration    *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all attendance metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	counters := []struct {
		dst  **telemetry.Counter
		opts telemetry.MetricOpts
	}{
		{&RegistrationsTotal, telemetry.MetricOpts{Name: "attendance_registrations_total", Description: "Total number of event registrations", Unit: "1"}},
		{&ParticipantsTotal, telemetry.MetricOpts{Name: "attendance_participants_created_total", Description: "Total number of participant accounts created", Unit: "1"}},
		{&CheckInsTotal, telemetry.MetricOpts{Name: "attendance_check_ins_total", Description: "Check-in attempts by outcome", Unit: "1"}},
		{&JobsPublished, telemetry.MetricOpts{Name: "attendance_jobs_published_total", Description: "Jobs handed to the job runner", Unit: "1"}},
		{&JobsProcessed, telemetry.MetricOpts{Name: "attendance_jobs_processed_total", Description: "Jobs executed by the worker", Unit: "1"}},
		{&JobsFailed, telemetry.MetricOpts{Name: "attendance_jobs_failed_total", Description: "Jobs sent to the dead letter topic", Unit: "1"}},
	}
	for _, c := range counters {
		counter, err := telemetry.NewCounter(c.opts)
		if err != nil {
			return err
		}
		*c.dst = counter
	}

	var err error
	ReportDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "attendance_report_duration_seconds",
		Description: "Time spent building attendance reports",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	JobDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "attendance_job_duration_seconds",
		Description: "Time spent executing a job",
		Unit:        "s",
	})
	return err
}

// RecordRegistration records a successful event registration
func RecordRegistration(ctx context.Context, eventID string) {
	RegistrationsTotal.Inc(ctx, attribute.String("event_id", eventID))
}

// RecordParticipantCreated records a new participant account
func RecordParticipantCreated(ctx context.Context) {
	ParticipantsTotal.Inc(ctx)
}

// RecordCheckIn records a check-in attempt. outcome is "ok" or an error code.
func RecordCheckIn(ctx context.Context, outcome string) {
	CheckInsTotal.Inc(ctx, attribute.String("outcome", outcome))
}

// RecordJobPublished records a job handed to the producer
func RecordJobPublished(ctx context.Context, jobName string) {
	JobsPublished.Inc(ctx, attribute.String("job", jobName))
}

// RecordJobProcessed records a finished job and its duration
func RecordJobProcessed(ctx context.Context, jobName string, durationSeconds float64, failed bool) {
	if failed {
		JobsFailed.Inc(ctx, attribute.String("job", jobName))
	} else {
		JobsProcessed.Inc(ctx, attribute.String("job", jobName))
	}
	JobDuration.Record(ctx, durationSeconds, attribute.String("job", jobName))
}

// RecordReportDuration records how long a report took to build
func RecordReportDuration(ctx context.Context, report string, durationSeconds float64) {
	ReportDuration.Record(ctx, durationSeconds, attribute.String("report", report))
}
