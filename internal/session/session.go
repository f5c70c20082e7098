// Package session runs one registration form per visitor.
//
// Every Session is an actor: a single goroutine owns the form state and
// processes events (field edits, submit, lot fetch results, timers) one at a
// time. Callers only ever see immutable Snapshots.
//
// Submit follows Idle -> Submitting -> Succeeded|Failed -> Idle. While a
// submit is in flight, another submit and any field or quantity edit are
// rejected with ErrSubmitInFlight. Delivery is bounded by
// Options.SubmitTimeout, and the success or failure message is cleared after
// Options.MessageClearDelay.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gdg-garage/cafe-das-mulheres/internal/form"
	"github.com/gdg-garage/cafe-das-mulheres/internal/lots"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/gdg-garage/cafe-das-mulheres/internal/stats"
	"github.com/gdg-garage/cafe-das-mulheres/internal/webhook"
	"github.com/sirupsen/logrus"
)

var (
	ErrSubmitInFlight = errors.New("submission already in progress")
	ErrSessionClosed  = errors.New("session closed")
)

const (
	MsgSuccess    = "Inscrição enviada com sucesso, em breve entraremos em contato!"
	MsgFailure    = "Desculpa, infelizmente ocorreu um erro. Tente novamente."
	MsgLotsFailed = "Não foi possível carregar os lotes. Tente novamente."
	MsgNoLots     = "Nenhum lote disponível no momento."
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type Snapshot struct {
	ID          string            `json:"id"`
	Registrant  models.Registrant `json:"registrant"`
	Quantity    int               `json:"quantity"`
	Lots        []models.Lot      `json:"lots"`
	LotsLoaded  bool              `json:"lotsLoaded"`
	LotsMessage string            `json:"lotsMessage,omitempty"`
	Errors      form.Errors       `json:"errors"`
	Outcome     Outcome           `json:"outcome"`
}

type LotLister interface {
	ListLots(ctx context.Context) ([]models.Lot, error)
}

type Options struct {
	Lots              LotLister
	Submitter         webhook.Submitter
	Stats             stats.Recorder
	LotsTimeout       time.Duration
	SubmitTimeout     time.Duration
	MessageClearDelay time.Duration
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.LotsTimeout <= 0 {
		o.LotsTimeout = 5 * time.Second
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 10 * time.Second
	}
	if o.MessageClearDelay <= 0 {
		o.MessageClearDelay = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type result struct {
	snap Snapshot
	err  error
}

type (
	fieldChanged struct {
		field models.Field
		value string
		reply chan result
	}
	quantityChanged struct {
		quantity int
		reply    chan result
	}
	submitRequested struct {
		reply chan result
	}
	snapshotRequested struct {
		reply chan result
	}
	lotsResolved struct {
		lots []models.Lot
	}
	lotsRejected struct {
		err error
	}
	submitResolved struct {
		err error
	}
	messageExpired struct {
		seq int
	}
)

// state is owned by the run goroutine and never shared.
type state struct {
	registrant   models.Registrant
	quantity     int
	pickable     []models.Lot
	defaultLotID string
	lotsLoaded   bool
	lotsMessage  string
	errors       form.Errors
	outcome      Outcome
	pending      chan result
	messageSeq   int
}

type Session struct {
	id       string
	opts     Options
	log      *logrus.Entry
	events   chan any
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	lastSeen atomic.Int64
	st       state
}

// Start launches the session loop and the initial lot fetch. The session
// lives until parent is cancelled or Close is called.
func Start(parent context.Context, id string, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:     id,
		opts:   opts.withDefaults(),
		log:    logrus.WithField("session_id", id),
		events: make(chan any),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		st: state{
			quantity: 1,
			errors:   form.Errors{},
			outcome:  Outcome{Status: StatusIdle},
		},
	}
	s.touch()

	go s.run()
	go s.fetchLots()

	return s
}

func (s *Session) ID() string {
	return s.id
}

// LastSeen is the last time a caller interacted with the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close discards the session. Results still in flight are dropped.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan result, 1)
	return s.call(ctx, snapshotRequested{reply: reply}, reply)
}

func (s *Session) SetField(ctx context.Context, field models.Field, value string) (Snapshot, error) {
	reply := make(chan result, 1)
	return s.call(ctx, fieldChanged{field: field, value: value, reply: reply}, reply)
}

func (s *Session) SetQuantity(ctx context.Context, quantity int) (Snapshot, error) {
	reply := make(chan result, 1)
	return s.call(ctx, quantityChanged{quantity: quantity, reply: reply}, reply)
}

// Submit validates the form and, when it is clean, delivers it. It blocks
// until the delivery resolves. Validation problems are reported in
// Snapshot.Errors, not as an error.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	reply := make(chan result, 1)
	return s.call(ctx, submitRequested{reply: reply}, reply)
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) call(ctx context.Context, ev any, reply chan result) (Snapshot, error) {
	s.touch()

	select {
	case s.events <- ev:
	case <-s.done:
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.snap, r.err
	case <-s.done:
		select {
		case r := <-reply:
			return r.snap, r.err
		default:
			return Snapshot{}, ErrSessionClosed
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// post delivers an internal event, or drops it once the session is gone.
func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case ev := <-s.events:
			if s.ctx.Err() != nil {
				s.shutdown()
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Session) shutdown() {
	if s.st.pending != nil {
		s.st.pending <- result{err: ErrSessionClosed}
		s.st.pending = nil
	}
	s.log.Debug("Session closed")
}

func (s *Session) handle(ev any) {
	st := &s.st

	switch ev := ev.(type) {
	case snapshotRequested:
		ev.reply <- result{snap: s.snapshot()}

	case fieldChanged:
		if st.pending != nil {
			ev.reply <- result{snap: s.snapshot(), err: ErrSubmitInFlight}
			return
		}
		registrant, err := st.registrant.WithField(ev.field, ev.value)
		if err != nil {
			ev.reply <- result{snap: s.snapshot(), err: err}
			return
		}
		st.registrant = registrant
		ev.reply <- result{snap: s.snapshot()}

	case quantityChanged:
		if st.pending != nil {
			ev.reply <- result{snap: s.snapshot(), err: ErrSubmitInFlight}
			return
		}
		st.quantity = ev.quantity
		ev.reply <- result{snap: s.snapshot()}

	case lotsResolved:
		s.applyLots(ev.lots)

	case lotsRejected:
		st.lotsMessage = MsgLotsFailed
		s.log.WithError(ev.err).Error("Failed to load lots")

	case submitRequested:
		s.startSubmit(ev.reply)

	case submitResolved:
		s.finishSubmit(ev.err)

	case messageExpired:
		if ev.seq == st.messageSeq && st.pending == nil {
			st.outcome = Outcome{Status: StatusIdle}
		}
	}
}

func (s *Session) applyLots(all []models.Lot) {
	st := &s.st

	st.lotsLoaded = true
	st.pickable = lots.Pickable(all)

	def, err := lots.Preselect(all)
	if err != nil {
		st.lotsMessage = MsgNoLots
		s.log.Warn("No active lot to select")
		return
	}
	if len(st.pickable) == 0 {
		st.lotsMessage = MsgNoLots
	}

	st.defaultLotID = def.ID
	if st.registrant.LotID == "" {
		st.registrant = st.registrant.WithLotID(def.ID)
	}
}

func (s *Session) startSubmit(reply chan result) {
	st := &s.st

	if st.pending != nil {
		reply <- result{snap: s.snapshot(), err: ErrSubmitInFlight}
		return
	}

	st.messageSeq++
	st.outcome = Outcome{Status: StatusSubmitting}

	registrant := form.Format(st.registrant)
	errs := form.ValidateForm(registrant, st.quantity, s.opts.Now())
	errs.Merge(form.ValidateLot(registrant.LotID, st.quantity, st.pickable))

	if len(errs) > 0 {
		st.errors = errs
		st.outcome = Outcome{Status: StatusIdle}
		s.record(stats.OutcomeInvalid)
		reply <- result{snap: s.snapshot()}
		return
	}

	st.errors = form.Errors{}
	st.pending = reply

	payload := form.NewPayload(registrant, st.quantity)
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.SubmitTimeout)
		defer cancel()

		s.post(submitResolved{err: s.opts.Submitter.Submit(ctx, payload)})
	}()
}

func (s *Session) finishSubmit(err error) {
	st := &s.st

	if err != nil {
		st.outcome = Outcome{Status: StatusFailed, Message: MsgFailure}
		s.log.WithError(err).Warn("Registration delivery failed")
		s.record(stats.OutcomeFailed)
	} else {
		st.registrant = models.Registrant{}.WithLotID(st.defaultLotID)
		st.quantity = 1
		st.errors = form.Errors{}
		st.outcome = Outcome{Status: StatusSucceeded, Message: MsgSuccess}
		s.log.Info("Registration delivered")
		s.record(stats.OutcomeSucceeded)
	}

	st.messageSeq++
	seq := st.messageSeq
	time.AfterFunc(s.opts.MessageClearDelay, func() {
		s.post(messageExpired{seq: seq})
	})

	if st.pending != nil {
		st.pending <- result{snap: s.snapshot()}
		st.pending = nil
	}
}

func (s *Session) fetchLots() {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.LotsTimeout)
	defer cancel()

	all, err := s.opts.Lots.ListLots(ctx)
	if err != nil {
		s.post(lotsRejected{err: err})
		return
	}
	s.post(lotsResolved{lots: all})
}

func (s *Session) record(outcome stats.Outcome) {
	if s.opts.Stats == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.opts.Stats.Record(ctx, outcome); err != nil {
			s.log.WithError(err).Warn("Failed to record submission outcome")
		}
	}()
}

func (s *Session) snapshot() Snapshot {
	st := &s.st

	errs := make(form.Errors, len(st.errors))
	for k, v := range st.errors {
		errs[k] = v
	}

	return Snapshot{
		ID:          s.id,
		Registrant:  st.registrant.WithBirthdate(st.registrant.Birthdate),
		Quantity:    st.quantity,
		Lots:        append([]models.Lot{}, st.pickable...),
		LotsLoaded:  st.lotsLoaded,
		LotsMessage: st.lotsMessage,
		Errors:      errs,
		Outcome:     st.outcome,
	}
}
