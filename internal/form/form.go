// Package form implements the record form controller. It owns the draft of one person record
// and its validation errors, and governs the open, submit and cancel lifecycle:
//
//	Closed -> Open(New) | Open(Edit) -> Submitting -> Closed
//
// A failed submission returns to Open so the user can retry.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/internal/phone"
	"gitlab.com/dirk.krummacker/person-directory/internal/validation"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// State is the lifecycle state of the form.
type State int

const (
	StateClosed State = iota
	StateOpenNew
	StateOpenEdit
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateOpenNew:
		return "Open(New)"
	case StateOpenEdit:
		return "Open(Edit)"
	case StateSubmitting:
		return "Submitting"
	default:
		return "Closed"
	}
}

// Open reports whether the form accepts input.
func (s State) Open() bool {
	return s == StateOpenNew || s == StateOpenEdit
}

const (
	MessageCreated = "person created successfully"
	MessageUpdated = "person updated successfully"
)

var (
	// ErrClosed is returned by operations that need an open form.
	ErrClosed = errors.New("form is closed")

	// ErrSubmitting is returned while a submission is in flight.
	ErrSubmitting = errors.New("form is being submitted")
)

// Controller is the record form controller. It is safe for concurrent use; gateway calls and
// callbacks run without holding the lock.
type Controller struct {
	mutator gateway.Mutator
	notices notify.Sink
	mutated notify.MutationHandler
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   State
	editID  int64
	session uint64
	values  validation.Values
	errs    validation.Errors
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now, which decides what a future birth date is.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New returns a closed form. Notices go to notices; every accepted create or update is reported
// to mutated. Both may be nil.
func New(mutator gateway.Mutator, notices notify.Sink, mutated notify.MutationHandler, opts ...Option) *Controller {
	if notices == nil {
		notices = notify.Discard
	}
	c := &Controller{
		mutator: mutator,
		notices: notices,
		mutated: mutated,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a new draft. With a nil existing record the form is empty; otherwise the draft is
// seeded from a copy of existing, its phone reduced to the raw 9 digits. Errors are cleared.
func (c *Controller) Open(existing *model.Person) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return ErrSubmitting
	}
	c.session++
	c.errs.Clear()
	c.values = validation.Values{}
	c.editID = 0
	c.state = StateOpenNew
	if existing != nil {
		c.values = seed(*existing)
		if existing.Persisted() {
			c.editID = existing.Id
			c.state = StateOpenEdit
		}
	}
	c.logger.Debug("form opened", zap.Stringer("state", c.state), zap.Int64("id", c.editID))
	return nil
}

// ChangeField stores the new value of field f and re-runs its validator. The phone input keeps
// only digits and never more than 9 of them. Other fields' errors are left alone.
func (c *Controller) ChangeField(f validation.Field, raw string) (validation.Reason, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return validation.ReasonNone, err
	}
	if f == validation.FieldPhone {
		raw = phone.FilterInput(raw)
	}
	c.values[f] = raw
	reason := validation.Validate(f, raw, c.now())
	c.errs.Set(f, reason)
	return reason, nil
}

// Submit validates every field. If one fails, the errors are kept for display and the joined
// validation errors are returned without calling the gateway. Otherwise the draft is sent with
// Create or Update. On success the draft is reset, the form closes, a success notice is sent and
// the record-mutated event is raised. On failure an error notice carries the backend message and
// the form is open again.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkOpen(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.errs = validation.ValidateAll(c.values, c.now())
	if c.errs.Any() {
		err := c.errs.Err()
		c.mu.Unlock()
		return err
	}
	openState, id, session := c.state, c.editID, c.session
	person, err := draftPerson(c.values)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	var (
		saved model.Person
		kind  notify.Mutation
		msg   string
	)
	if openState == StateOpenEdit {
		kind, msg = notify.Updated, MessageUpdated
		saved, err = c.mutator.Update(ctx, id, person)
	} else {
		kind, msg = notify.Created, MessageCreated
		saved, err = c.mutator.Create(ctx, person)
	}

	c.mu.Lock()
	current := c.session == session
	if err != nil {
		if current {
			c.state = openState
		}
		c.mu.Unlock()
		c.logger.Warn("submit failed", zap.Stringer("kind", kind), zap.Int64("id", id), zap.Error(err))
		c.notices.Notify(notify.Failure(gateway.UserMessage(err)))
		return err
	}
	if current {
		c.reset()
	}
	c.mu.Unlock()

	c.logger.Info("person saved", zap.Stringer("kind", kind), zap.Int64("id", saved.Id))
	c.notices.Notify(notify.Success(msg))
	if c.mutated != nil {
		c.mutated.RecordMutated(ctx, notify.RecordMutated{Kind: kind, ID: saved.Id})
	}
	return nil
}

// Cancel discards the draft and closes the form. There is no confirmation.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Value returns the draft text of field f as the user sees it in the input.
func (c *Controller) Value(f validation.Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[f]
}

// Values returns a copy of the whole draft.
func (c *Controller) Values() validation.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values
}

// Errors returns a copy of the current validation errors.
func (c *Controller) Errors() validation.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs
}

// EditingID returns the id of the record being edited, if any.
func (c *Controller) EditingID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editID, c.editID != 0
}

// DisplayPhone renders the draft phone as "+221 77 123 45 67". It is empty while the phone is
// empty or invalid.
func (c *Controller) DisplayPhone() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.values[validation.FieldPhone]
	if p == "" || validation.ValidatePhone(p) != validation.ReasonNone {
		return ""
	}
	display, err := phone.ToDisplay(p)
	if err != nil {
		return ""
	}
	return display
}

func (c *Controller) checkOpen() error {
	switch {
	case c.state == StateSubmitting:
		return ErrSubmitting
	case !c.state.Open():
		return ErrClosed
	}
	return nil
}

// reset must be called with c.mu held.
func (c *Controller) reset() {
	c.session++
	c.state = StateClosed
	c.editID = 0
	c.values = validation.Values{}
	c.errs.Clear()
}

func seed(p model.Person) validation.Values {
	var v validation.Values
	v[validation.FieldLastName] = p.LastName
	v[validation.FieldFirstName] = p.FirstName
	if p.BirthDate != nil && !p.BirthDate.IsZero() {
		v[validation.FieldBirthDate] = p.BirthDate.String()
	}
	v[validation.FieldAddress] = model.StringValue(p.Address)
	v[validation.FieldPhone] = phone.ToCanonical(model.StringValue(p.Phone))
	return v
}

// draftPerson converts validated values into the gateway payload.
func draftPerson(v validation.Values) (model.Person, error) {
	p := model.Person{
		LastName:  strings.TrimSpace(v[validation.FieldLastName]),
		FirstName: strings.TrimSpace(v[validation.FieldFirstName]),
		Address:   model.StringPtr(strings.TrimSpace(v[validation.FieldAddress])),
		Phone:     model.StringPtr(phone.ToCanonical(v[validation.FieldPhone])),
	}
	if s := strings.TrimSpace(v[validation.FieldBirthDate]); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return model.Person{}, &validation.ValidationError{Field: validation.FieldBirthDate, Reason: validation.ReasonInvalidFormat}
		}
		p.BirthDate = &d
	}
	return p, nil
}
