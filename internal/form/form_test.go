package form

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/internal/validation"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// fakeMutator records the calls made by the controller and answers with err, if set.
type fakeMutator struct {
	mu      sync.Mutex
	created []model.Person
	updated map[int64]model.Person
	err     error
	// block, if not nil, is waited on before answering.
	block chan struct{}
}

func (f *fakeMutator) Create(_ context.Context, p model.Person) (model.Person, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, p)
	if f.err != nil {
		return model.Person{}, f.err
	}
	p.Id = int64(len(f.created))
	return p, nil
}

func (f *fakeMutator) Update(_ context.Context, id int64, p model.Person) (model.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[int64]model.Person{}
	}
	f.updated[id] = p
	if f.err != nil {
		return model.Person{}, f.err
	}
	p.Id = id
	return p, nil
}

func (f *fakeMutator) DeleteByID(context.Context, int64) error {
	return errors.New("not used")
}

func (f *fakeMutator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.updated)
}

// mutationLog records the record-mutated events.
type mutationLog struct {
	mu     sync.Mutex
	events []notify.RecordMutated
}

func (m *mutationLog) RecordMutated(_ context.Context, ev notify.RecordMutated) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mutationLog) all() []notify.RecordMutated {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.RecordMutated(nil), m.events...)
}

var today = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func createMockObjects(t *testing.T) (*Controller, *fakeMutator, *notify.Recorder, *mutationLog) {
	mutator := &fakeMutator{}
	notices := &notify.Recorder{}
	mutations := &mutationLog{}
	c := New(mutator, notices, mutations,
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return today }))
	return c, mutator, notices, mutations
}

func change(t *testing.T, c *Controller, f validation.Field, value string) {
	_, err := c.ChangeField(f, value)
	require.NoError(t, err)
}

// TestSubmitNewRecord creates Diop Fatou with phone 771234567. It expects a Create call with the
// canonical phone, a success notice, one record-mutated event and an empty, closed form.
func TestSubmitNewRecord(t *testing.T) {
	c, mutator, notices, mutations := createMockObjects(t)

	require.NoError(t, c.Open(nil))
	assert.Equal(t, StateOpenNew, c.State())
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")
	change(t, c, validation.FieldPhone, "771234567")

	require.NoError(t, c.Submit(context.Background()))

	require.Len(t, mutator.created, 1)
	sent := mutator.created[0]
	assert.Equal(t, "Diop", sent.LastName)
	assert.Equal(t, "Fatou", sent.FirstName)
	require.NotNil(t, sent.Phone)
	assert.Equal(t, "771234567", *sent.Phone)
	assert.Nil(t, sent.Address)
	assert.Nil(t, sent.BirthDate)
	assert.Zero(t, sent.Id)

	assert.Equal(t, StateClosed, c.State())
	assert.Equal(t, validation.Values{}, c.Values())
	assert.False(t, c.Errors().Any())

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Success(MessageCreated), last)
	assert.Equal(t, []notify.RecordMutated{{Kind: notify.Created, ID: 1}}, mutations.all())
}

// TestOpenForEdit seeds the draft from a stored record. It expects the raw phone digits in the
// input and the prefixed form from the display helper.
func TestOpenForEdit(t *testing.T) {
	c, _, _, _ := createMockObjects(t)
	birth := model.NewDate(1990, time.May, 1)
	existing := model.Person{
		Id:        7,
		LastName:  "DIOP",
		FirstName: "Fatou",
		BirthDate: &birth,
		Address:   model.StringPtr("Rue 10, Dakar"),
		Phone:     model.StringPtr("771234567"),
	}

	require.NoError(t, c.Open(&existing))
	assert.Equal(t, StateOpenEdit, c.State())
	id, editing := c.EditingID()
	assert.True(t, editing)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "771234567", c.Value(validation.FieldPhone))
	assert.Equal(t, "+221 77 123 45 67", c.DisplayPhone())
	assert.Equal(t, "1990-05-01", c.Value(validation.FieldBirthDate))
	assert.Equal(t, "Rue 10, Dakar", c.Value(validation.FieldAddress))
	assert.False(t, c.Errors().Any())
}

// TestOpenForEditStripsFormattedPhone expects a phone stored with separators to be reduced to
// its digits.
func TestOpenForEditStripsFormattedPhone(t *testing.T) {
	c, _, _, _ := createMockObjects(t)
	existing := model.Person{Id: 3, LastName: "FALL", FirstName: "Moussa", Phone: model.StringPtr("+221 78 765 43 21")}

	require.NoError(t, c.Open(&existing))
	assert.Equal(t, "787654321", c.Value(validation.FieldPhone))
}

// TestShortPhoneBlocksSubmit types 5 digits. It expects WrongLength and no gateway call.
func TestShortPhoneBlocksSubmit(t *testing.T) {
	c, mutator, notices, mutations := createMockObjects(t)
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")

	reason, err := c.ChangeField(validation.FieldPhone, "12345")
	require.NoError(t, err)
	assert.Equal(t, validation.ReasonWrongLength, reason)

	err = c.Submit(context.Background())
	require.Error(t, err)
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validation.FieldPhone, verr.Field)
	assert.Equal(t, validation.ReasonWrongLength, verr.Reason)

	assert.Zero(t, mutator.calls())
	assert.Equal(t, StateOpenNew, c.State())
	assert.Equal(t, validation.ReasonWrongLength, c.Errors().Get(validation.FieldPhone))
	assert.Empty(t, notices.Notices())
	assert.Empty(t, mutations.all())
	assert.Empty(t, c.DisplayPhone())
}

// TestSubmitValidatesEveryField submits an untouched form. It expects both names to be
// reported as required.
func TestSubmitValidatesEveryField(t *testing.T) {
	c, mutator, _, _ := createMockObjects(t)
	require.NoError(t, c.Open(nil))

	require.Error(t, c.Submit(context.Background()))
	errs := c.Errors()
	assert.Equal(t, validation.ReasonRequired, errs.Get(validation.FieldLastName))
	assert.Equal(t, validation.ReasonRequired, errs.Get(validation.FieldFirstName))
	assert.Equal(t, validation.ReasonNone, errs.Get(validation.FieldPhone))
	assert.Zero(t, mutator.calls())
}

func TestFutureBirthDateBlocksSubmit(t *testing.T) {
	c, mutator, _, _ := createMockObjects(t)
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")
	change(t, c, validation.FieldBirthDate, "2024-06-16")

	require.Error(t, c.Submit(context.Background()))
	assert.Equal(t, validation.ReasonFutureDate, c.Errors().Get(validation.FieldBirthDate))
	assert.Zero(t, mutator.calls())
}

// TestChangeFieldOnlyTouchesThatField expects the error of another field to survive.
func TestChangeFieldOnlyTouchesThatField(t *testing.T) {
	c, _, _, _ := createMockObjects(t)
	require.NoError(t, c.Open(nil))

	reason, err := c.ChangeField(validation.FieldLastName, "D10p")
	require.NoError(t, err)
	assert.Equal(t, validation.ReasonInvalidCharset, reason)

	change(t, c, validation.FieldAddress, "Rue 10, Dakar")
	errs := c.Errors()
	assert.Equal(t, validation.ReasonInvalidCharset, errs.Get(validation.FieldLastName))
	assert.Equal(t, validation.ReasonNone, errs.Get(validation.FieldAddress))
	// The first name was never touched and is not reported yet.
	assert.Equal(t, validation.ReasonNone, errs.Get(validation.FieldFirstName))
}

// TestPhoneInputIsFilteredAndCapped types letters and more than 9 digits into the phone.
func TestPhoneInputIsFilteredAndCapped(t *testing.T) {
	c, _, _, _ := createMockObjects(t)
	require.NoError(t, c.Open(nil))

	change(t, c, validation.FieldPhone, "77a12-34")
	assert.Equal(t, "771234", c.Value(validation.FieldPhone))

	reason, err := c.ChangeField(validation.FieldPhone, "7712345678999")
	require.NoError(t, err)
	assert.Equal(t, "771234567", c.Value(validation.FieldPhone))
	assert.Equal(t, validation.ReasonNone, reason)
}

// TestSubmitUpdate edits an existing record. It expects an Update call with the record id.
func TestSubmitUpdate(t *testing.T) {
	c, mutator, notices, mutations := createMockObjects(t)
	existing := model.Person{Id: 12, LastName: "NDIAYE", FirstName: "Awa", Phone: model.StringPtr("701112233")}
	require.NoError(t, c.Open(&existing))
	change(t, c, validation.FieldAddress, "Thiès")

	require.NoError(t, c.Submit(context.Background()))

	require.Contains(t, mutator.updated, int64(12))
	sent := mutator.updated[12]
	assert.Equal(t, "Thiès", *sent.Address)
	assert.Equal(t, "701112233", *sent.Phone)
	assert.Empty(t, mutator.created)

	last, _ := notices.Last()
	assert.Equal(t, notify.Success(MessageUpdated), last)
	assert.Equal(t, []notify.RecordMutated{{Kind: notify.Updated, ID: 12}}, mutations.all())
	assert.Equal(t, StateClosed, c.State())
}

// TestSubmitFailureKeepsFormOpen expects the backend message in an error notice, the form back
// in Open with the draft intact, and no record-mutated event.
func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	c, mutator, notices, mutations := createMockObjects(t)
	mutator.err = &gateway.GatewayError{Op: "create", Status: http.StatusBadRequest, Message: "phone number already in use"}
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")
	change(t, c, validation.FieldPhone, "771234567")

	err := c.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateOpenNew, c.State())
	assert.Equal(t, "Diop", c.Value(validation.FieldLastName))
	last, _ := notices.Last()
	assert.Equal(t, notify.Failure("phone number already in use"), last)
	assert.Empty(t, mutations.all())

	// A retry goes through once the backend accepts it.
	mutator.err = nil
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, StateClosed, c.State())
}

// TestNetworkFailureUsesFallbackMessage expects the generic message for an unreachable backend.
func TestNetworkFailureUsesFallbackMessage(t *testing.T) {
	c, mutator, notices, _ := createMockObjects(t)
	mutator.err = &gateway.NetworkError{Op: "create", Err: errors.New("connection refused")}
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")

	require.Error(t, c.Submit(context.Background()))
	last, _ := notices.Last()
	assert.Equal(t, "error: "+gateway.FallbackMessage, last.Message)
	assert.Equal(t, StateOpenNew, c.State())
}

func TestCancelDiscardsDraft(t *testing.T) {
	c, mutator, _, _ := createMockObjects(t)
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")

	c.Cancel()
	assert.Equal(t, StateClosed, c.State())
	assert.Equal(t, validation.Values{}, c.Values())
	assert.ErrorIs(t, c.Submit(context.Background()), ErrClosed)
	_, err := c.ChangeField(validation.FieldLastName, "Fall")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, mutator.calls())
}

// TestSubmittingRejectsInput blocks the gateway while the submission is in flight.
func TestSubmittingRejectsInput(t *testing.T) {
	c, mutator, _, _ := createMockObjects(t)
	mutator.block = make(chan struct{})
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()

	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)
	_, err := c.ChangeField(validation.FieldLastName, "Fall")
	assert.ErrorIs(t, err, ErrSubmitting)
	assert.ErrorIs(t, c.Open(nil), ErrSubmitting)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmitting)

	close(mutator.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, c.State())
}

// TestCancelWhileSubmitting closes the form during the call. It expects the late success to
// still be reported without reopening the form.
func TestCancelWhileSubmitting(t *testing.T) {
	c, mutator, notices, mutations := createMockObjects(t)
	mutator.block = make(chan struct{})
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Diop")
	change(t, c, validation.FieldFirstName, "Fatou")

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)

	c.Cancel()
	require.NoError(t, c.Open(nil))
	change(t, c, validation.FieldLastName, "Fall")

	close(mutator.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateOpenNew, c.State())
	assert.Equal(t, "Fall", c.Value(validation.FieldLastName))
	assert.Len(t, notices.Notices(), 1)
	assert.Len(t, mutations.all(), 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "Open(New)", StateOpenNew.String())
	assert.Equal(t, "Open(Edit)", StateOpenEdit.String())
	assert.Equal(t, "Submitting", StateSubmitting.String())
}
