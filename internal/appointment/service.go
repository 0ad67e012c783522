package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/appointment-assistant/internal/metrics"
	redisclient "github.com/hackgods/appointment-assistant/internal/redis"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

const (
	EventBookingNotified       = "BOOKING_NOTIFIED"
	EventBookingNotifyFailed   = "BOOKING_NOTIFY_FAILED"
	EventBookingRemoteSaved    = "BOOKING_REMOTE_SAVED"
	EventBookingRemoteRejected = "BOOKING_REMOTE_REJECTED"
	EventBookingLocalSaved     = "BOOKING_LOCAL_SAVED"
	EventBookingLocalFailed    = "BOOKING_LOCAL_FAILED"
)

const (
	SinkNotification = "notification"
	SinkRemote       = "remote"
	SinkLocal        = "local"
)

var ErrIncompleteAppointment = errors.New("appointment is missing required fields")

type Result string

const (
	ResultBooked       Result = "booked"
	ResultSlotTaken    Result = "slot_taken"
	ResultRemoteFailed Result = "remote_failed"
	ResultLocalFailed  Result = "local_failed"
	ResultBusy         Result = "busy"
)

type SinkStatus string

const (
	SinkOK      SinkStatus = "ok"
	SinkFailed  SinkStatus = "failed"
	SinkSkipped SinkStatus = "skipped"
)

type SinkOutcome struct {
	Sink    string
	Status  SinkStatus
	Message string
	Err     error
}

// CommitResult reports every sink separately. The sinks are not
// transactional, so a booked result can still carry a failed notification and
// a local failure can follow a remote success.
type CommitResult struct {
	Appointment  Appointment
	Result       Result
	Notification SinkOutcome
	Remote       SinkOutcome
	Local        SinkOutcome
}

func (r *CommitResult) Outcomes() []SinkOutcome {
	return []SinkOutcome{r.Notification, r.Remote, r.Local}
}

type Sinks struct {
	Notifier Notifier
	Remote   RemoteStore
	Local    LocalLog
}

type Service struct {
	sinks   Sinks
	locker  redisclient.Locker
	events  EventRepository
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewService(sinks Sinks, locker redisclient.Locker, events EventRepository, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if sinks.Notifier == nil || sinks.Remote == nil || sinks.Local == nil {
		panic("appointment: all three sinks are required")
	}
	if locker == nil {
		locker = redisclient.NewLocalSlotLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sinks:   sinks,
		locker:  locker,
		events:  events,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("assistant.internal.appointment"),
		now:     time.Now,
	}
}

// Book commits a validated appointment to the sinks in a fixed order:
// notification, remote store, local log. The whole commit runs under the slot
// lock so two sessions cannot interleave their check-then-create steps.
// A notification failure never stops the commit; a remote rejection ends it
// before the local log.
func (s *Service) Book(ctx context.Context, sessionID string, appt Appointment) (*CommitResult, error) {
	if strings.TrimSpace(appt.PatientName) == "" || appt.DoctorName == "" || appt.Date == "" || appt.Time == "" {
		return nil, ErrIncompleteAppointment
	}
	appt.Status = StatusPending
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now()
	}

	key := appt.Key()
	var result *CommitResult

	err := s.locker.WithSlotLock(ctx, key.String(), func(lockCtx context.Context) error {
		result = s.commit(lockCtx, sessionID, appt)
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveAttempt(string(ResultBusy))
			return &CommitResult{Appointment: appt, Result: ResultBusy}, ErrSlotBeingBooked
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	s.metrics.ObserveAttempt(string(result.Result))
	s.logger.Info("booking committed",
		"session_id", sessionID,
		"slot", key.String(),
		"result", result.Result,
		"notification", result.Notification.Status,
		"remote", result.Remote.Status,
		"local", result.Local.Status,
	)
	return result, nil
}

func (s *Service) commit(ctx context.Context, sessionID string, appt Appointment) *CommitResult {
	res := &CommitResult{Appointment: appt}

	res.Notification = s.runSink(ctx, SinkNotification, appt, func(ctx context.Context) (string, error) {
		ack, err := s.sinks.Notifier.Notify(ctx, appt)
		if err != nil || ack == nil {
			return "", err
		}
		return ack.Message, nil
	})
	if res.Notification.Err != nil {
		s.logEvent(ctx, sessionID, appt, EventBookingNotifyFailed, res.Notification)
	} else {
		s.logEvent(ctx, sessionID, appt, EventBookingNotified, res.Notification)
	}

	res.Remote = s.runSink(ctx, SinkRemote, appt, func(ctx context.Context) (string, error) {
		return confirmationMessage(s.sinks.Remote.Save(ctx, appt))
	})
	if res.Remote.Err != nil {
		s.logEvent(ctx, sessionID, appt, EventBookingRemoteRejected, res.Remote)
		res.Local = SinkOutcome{Sink: SinkLocal, Status: SinkSkipped}
		if errors.Is(res.Remote.Err, ErrSlotAlreadyBooked) {
			res.Result = ResultSlotTaken
		} else {
			res.Result = ResultRemoteFailed
		}
		return res
	}
	s.logEvent(ctx, sessionID, appt, EventBookingRemoteSaved, res.Remote)

	res.Local = s.runSink(ctx, SinkLocal, appt, func(ctx context.Context) (string, error) {
		return confirmationMessage(s.sinks.Local.Confirm(ctx, appt))
	})
	if res.Local.Err != nil {
		// the remote record stays; nothing reconciles the two stores
		s.logEvent(ctx, sessionID, appt, EventBookingLocalFailed, res.Local)
		res.Result = ResultLocalFailed
		return res
	}
	s.logEvent(ctx, sessionID, appt, EventBookingLocalSaved, res.Local)

	res.Result = ResultBooked
	return res
}

func confirmationMessage(conf *Confirmation, err error) (string, error) {
	if err != nil || conf == nil {
		return "", err
	}
	return conf.Message, nil
}

func (s *Service) runSink(ctx context.Context, sink string, appt Appointment, fn func(ctx context.Context) (string, error)) SinkOutcome {
	ctx, span := s.tracer.Start(ctx, "booking.sink."+sink, trace.WithAttributes(
		attribute.String("booking.doctor", appt.DoctorName),
		attribute.String("booking.date", appt.Date),
		attribute.String("booking.time", appt.Time),
	))
	defer span.End()

	msg, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := "failed"
		if errors.Is(err, ErrSinkTimeout) {
			outcome = "timeout"
		} else if errors.Is(err, ErrSlotAlreadyBooked) {
			outcome = "conflict"
		}
		s.metrics.ObserveSink(sink, outcome)
		s.logger.Warn("booking sink failed", "sink", sink, "slot", appt.Key().String(), "error", err)
		return SinkOutcome{Sink: sink, Status: SinkFailed, Message: err.Error(), Err: err}
	}

	s.metrics.ObserveSink(sink, "ok")
	return SinkOutcome{Sink: sink, Status: SinkOK, Message: msg}
}

func (s *Service) logEvent(ctx context.Context, sessionID string, appt Appointment, eventType string, outcome SinkOutcome) {
	if s.events == nil {
		return
	}

	payload := map[string]any{
		"patient": appt.PatientName,
		"doctor":  appt.DoctorName,
		"date":    appt.Date,
		"time":    appt.Time,
		"sink":    outcome.Sink,
		"status":  outcome.Status,
	}
	if outcome.Message != "" {
		payload["message"] = outcome.Message
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload", "event", eventType, "error", err)
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		SlotKey:   appt.Key().String(),
		SessionID: sessionID,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.events.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Error("failed to insert booking event", "event", eventType, "slot", ev.SlotKey, "error", err)
	}
}
