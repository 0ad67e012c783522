package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/appointment-assistant/internal/appointment"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/internal/metrics"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

const thinking = "thinking..."

var ErrEmptyMessage = errors.New("message is empty")

type Options struct {
	Extractor    Extractor // nil uses KeywordExtractor
	Phraser      Phraser   // nil uses PlainPhraser
	RequireEmail bool
	Metrics      *metrics.BookingMetrics
	Logger       *logging.Logger
	Now          func() time.Time
}

// Orchestrator runs one booking conversation turn at a time. Control flow is
// decided here from the structured fields; the extractor and phraser only
// read and write natural language.
type Orchestrator struct {
	dir          *directory.Directory
	validator    *directory.Validator
	booker       Booker
	extractor    Extractor
	phraser      Phraser
	requireEmail bool
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewOrchestrator(dir *directory.Directory, booker Booker, opts Options) *Orchestrator {
	if opts.Extractor == nil {
		opts.Extractor = KeywordExtractor{}
	}
	if opts.Phraser == nil {
		opts.Phraser = PlainPhraser{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		dir:          dir,
		validator:    directory.NewValidator(dir, opts.Now),
		booker:       booker,
		extractor:    opts.Extractor,
		phraser:      opts.Phraser,
		requireEmail: opts.RequireEmail,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		tracer:       otel.Tracer("assistant.internal.assistant"),
		now:          opts.Now,
	}
}

type turnState struct {
	fields   Fields
	stage    Stage
	kind     ReplyKind
	draft    string
	awaiting string
	commit   *appointment.CommitResult
}

// Handle processes one user message: it records a placeholder transcript
// entry, moves the session through the booking stages, streams the reply
// through emit and finally replaces the placeholder with the full reply.
func (o *Orchestrator) Handle(ctx context.Context, sess *Session, text string, emit func(string)) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	sess.turn.Lock()
	defer sess.turn.Unlock()

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "assistant.turn", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
	))
	defer span.End()

	history := sess.transcript.Pairs()
	sess.transcript.Append(text, thinking)
	sess.setStage(StageGathering)

	known, awaiting := sess.snapshot()
	ex := o.extract(ctx, ExtractRequest{
		Text:     text,
		Known:    known,
		Awaiting: awaiting,
		Doctors:  o.dir.Names(),
		Today:    o.now(),
		History:  history,
	})

	st := o.decide(ctx, sess, known, ex)
	span.SetAttributes(attribute.String("turn.stage", string(st.stage)), attribute.String("turn.reply", string(st.kind)))

	out, err := o.phrase(ctx, PhraseRequest{
		Kind:     st.kind,
		Draft:    st.draft,
		UserText: text,
		Fields:   st.fields,
		History:  history,
	}, emit)
	if err != nil {
		span.RecordError(err)
		sess.transcript.ReplaceLast(text, st.draft)
	} else {
		sess.transcript.ReplaceLast(text, out)
	}

	next := st.fields
	if st.stage == StageTerminal {
		next = afterTerminal(st.kind, st.fields)
	}
	sess.update(st.stage, next, st.awaiting)

	o.metrics.ObserveTurn(string(st.stage), time.Since(start).Seconds())
	o.logger.Info("turn handled",
		"session_id", sess.ID,
		"stage", st.stage,
		"reply", st.kind,
		"doctor", st.fields.Doctor,
		"date", st.fields.Date,
		"time", st.fields.Time,
	)

	reply := Reply{Kind: st.kind, Text: out, Stage: st.stage, Fields: next, Commit: st.commit}
	if err != nil {
		reply.Text = st.draft
		return reply, err
	}
	return reply, nil
}

func (o *Orchestrator) extract(ctx context.Context, req ExtractRequest) Extraction {
	ex, err := o.extractor.Extract(ctx, req)
	if err == nil {
		return ex
	}
	o.logger.Warn("extractor failed, using keyword extraction", "error", err)
	ex, _ = KeywordExtractor{}.Extract(ctx, req)
	return ex
}

// phrase falls back to the draft when the phraser fails before emitting
// anything. A stream that breaks midway keeps what the patient already saw.
func (o *Orchestrator) phrase(ctx context.Context, req PhraseRequest, emit func(string)) (string, error) {
	var sent strings.Builder
	tee := func(tok string) {
		sent.WriteString(tok)
		if emit != nil {
			emit(tok)
		}
	}

	out, err := o.phraser.Phrase(ctx, req, tee)
	if err == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	if ctx.Err() != nil {
		return sent.String(), ctx.Err()
	}
	if err != nil {
		o.logger.Warn("phraser failed", "kind", req.Kind, "error", err)
	}
	if sent.Len() > 0 {
		return sent.String(), nil
	}
	return PlainPhraser{}.Phrase(ctx, req, tee)
}

func (o *Orchestrator) decide(ctx context.Context, sess *Session, known Fields, ex Extraction) turnState {
	st := turnState{fields: known, stage: StageGathering}

	switch ex.Intent {
	case IntentReset:
		st.fields = Fields{PatientName: known.PatientName, Email: known.Email}
		st.kind = ReplyReset
		st.draft = "Okay, let's start over. " + askFor(nextField(st.fields, o.requireEmail), st.fields, o.dir)
		st.awaiting = nextField(st.fields, o.requireEmail)
		return st
	case IntentListDoctors:
		st.fields.Merge(ex.Fields)
		st.kind = ReplyListing
		st.draft = "Here are our doctors and their hours:\n" + o.dir.Describe()
		st.awaiting = nextField(st.fields, o.requireEmail)
		return st
	}

	st.fields.Merge(ex.Fields)

	if st.fields.Doctor != "" {
		doc, ok := o.dir.Lookup(st.fields.Doctor)
		if !ok {
			return o.reject(st, directory.ErrUnknownDoctor)
		}
		st.fields.Doctor = doc.Name
	}
	if st.fields.Date != "" {
		if _, err := directory.ParseDate(st.fields.Date); err != nil {
			return o.reject(st, err)
		}
	}
	if st.fields.Time != "" {
		if _, err := directory.ParseClock(st.fields.Time); err != nil {
			return o.reject(st, err)
		}
	}

	if field := nextField(st.fields, o.requireEmail); field != "" {
		st.kind = ReplyAsk
		st.draft = askFor(field, st.fields, o.dir)
		st.awaiting = field
		return st
	}

	st.stage = StageValidating
	sess.setStage(st.stage)
	slot, err := o.validator.Validate(st.fields.Doctor, st.fields.Date, st.fields.Time)
	if err != nil {
		return o.reject(st, err)
	}
	st.fields.Doctor = slot.Doctor
	st.fields.Date = slot.Date
	st.fields.Time = slot.Time

	st.stage = StageCommitting
	sess.setStage(st.stage)
	res, err := o.booker.Book(ctx, sess.ID, appointment.Appointment{
		PatientName: st.fields.PatientName,
		Email:       st.fields.Email,
		DoctorName:  slot.Doctor,
		Date:        slot.Date,
		Time:        slot.Time,
	})
	st.stage = StageTerminal
	switch {
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		st.kind = ReplyBusy
		st.draft = "Someone else is booking that exact slot right now. Please try again in a moment."
		return st
	case err != nil:
		o.logger.Error("booking failed", "session_id", sess.ID, "error", err)
		st.kind = ReplyFailed
		st.draft = "Sorry, we could not save your appointment right now. Please try again later."
		return st
	}

	st.commit = res
	st.kind, st.draft = commitDraft(res)
	if st.kind == ReplySlotTaken {
		st.awaiting = FieldTime
	}
	return st
}

func (o *Orchestrator) reject(st turnState, err error) turnState {
	st.kind = ReplyRejected
	st.draft = rejectionDraft(err, st.fields, o.dir)
	st.fields = clearRejected(err, st.fields)
	st.awaiting = nextField(st.fields, o.requireEmail)
	return st
}

func nextField(f Fields, requireEmail bool) string {
	missing := f.Missing(requireEmail)
	if len(missing) == 0 {
		return ""
	}
	return missing[0]
}
