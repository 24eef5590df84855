// Package directory implements the directory query controller. It owns the result set shown to
// the user, the criteria of the current search, the loading flag and the delete confirmation.
//
// The result set is always the snapshot of the last successful list or search response and is
// replaced as a whole. Every list or search carries a request id; a response that arrives after
// a newer request was issued is discarded.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// MessageDeleted is the notice sent after a successful delete.
const MessageDeleted = "person deleted successfully"

var (
	// ErrNoPendingDelete is returned by ConfirmDelete when no record awaits confirmation.
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")

	// ErrNotPersisted is returned by RequestDelete for a record without id.
	ErrNotPersisted = errors.New("record has no id")

	// ErrStale is returned when a response was discarded because a newer request was issued.
	ErrStale = errors.New("response superseded by a newer request")
)

// Backend is what the controller needs from the gateway.
type Backend interface {
	gateway.Querier
	DeleteByID(ctx context.Context, id int64) error
}

// View is a consistent snapshot of the controller state.
type View struct {
	Results       []model.Person
	Criteria      model.SearchCriteria
	Loading       bool
	PendingDelete *model.Person
}

// Count is the number of records in the result set.
func (v View) Count() int {
	return len(v.Results)
}

// Controller is the directory query controller. It is safe for concurrent use.
type Controller struct {
	backend Backend
	notices notify.Sink
	logger  *zap.Logger

	mu       sync.Mutex
	seq      uint64
	results  []model.Person
	criteria model.SearchCriteria
	loading  bool
	pending  *model.Person
}

var _ notify.MutationHandler = (*Controller)(nil)

// New returns a controller with an empty result set. notices may be nil; a nil logger means no
// logging.
func New(backend Backend, notices notify.Sink, logger *zap.Logger) *Controller {
	if notices == nil {
		notices = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{backend: backend, notices: notices, logger: logger}
}

// Reload fetches every record from the backend and replaces the result set. The search
// criteria are cleared.
func (c *Controller) Reload(ctx context.Context) error {
	return c.fetch(ctx, "list", model.SearchCriteria{}, func(ctx context.Context) ([]model.Person, error) {
		return c.backend.ListAll(ctx)
	})
}

// Search fetches the records matching criteria and replaces the result set. Filtering is left
// to the backend.
func (c *Controller) Search(ctx context.Context, criteria model.SearchCriteria) error {
	return c.fetch(ctx, "search", criteria, func(ctx context.Context) ([]model.Person, error) {
		return c.backend.Search(ctx, criteria)
	})
}

// RecordMutated reloads the directory. The record form raises it after every accepted create
// or update.
func (c *Controller) RecordMutated(ctx context.Context, ev notify.RecordMutated) {
	c.logger.Debug("record mutated", zap.Stringer("kind", ev.Kind), zap.Int64("id", ev.ID))
	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		c.logger.Warn("reload after mutation failed", zap.Error(err))
	}
}

// RequestDelete holds a copy of p until the delete is confirmed or canceled.
func (c *Controller) RequestDelete(p model.Person) error {
	if !p.Persisted() {
		return ErrNotPersisted
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &p
	return nil
}

// CancelDelete drops the held record.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// ConfirmDelete deletes the held record and reloads the directory. When the backend refuses,
// the record stays held so that the user can retry or cancel, and an error notice is sent.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingDelete
	}
	target := *c.pending
	c.mu.Unlock()

	if err := c.backend.DeleteByID(ctx, target.Id); err != nil {
		c.logger.Warn("delete failed", zap.Int64("id", target.Id), zap.Error(err))
		c.notices.Notify(notify.Failure(gateway.UserMessage(err)))
		return err
	}

	c.mu.Lock()
	if c.pending != nil && c.pending.Id == target.Id {
		c.pending = nil
	}
	c.mu.Unlock()

	c.logger.Info("person deleted", zap.Int64("id", target.Id))
	c.notices.Notify(notify.Success(MessageDeleted))
	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("reload after delete: %w", err)
	}
	return nil
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Results:  append([]model.Person(nil), c.results...),
		Criteria: c.criteria,
		Loading:  c.loading,
	}
	if c.pending != nil {
		p := *c.pending
		v.PendingDelete = &p
	}
	return v
}

// fetch runs query as the latest request. Only the latest request may publish its results or
// clear the loading flag.
func (c *Controller) fetch(ctx context.Context, op string, criteria model.SearchCriteria,
	query func(context.Context) ([]model.Person, error)) error {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.loading = true
	c.mu.Unlock()
	defer c.release(id)

	results, err := query(ctx)

	c.mu.Lock()
	if c.seq != id {
		c.mu.Unlock()
		c.logger.Debug("discarding stale response", zap.String("operation", op), zap.Uint64("request", id))
		return ErrStale
	}
	c.loading = false
	if err == nil {
		c.results = results
		c.criteria = criteria
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query failed", zap.String("operation", op), zap.Error(err))
		c.notices.Notify(notify.Failure(gateway.UserMessage(err)))
		return err
	}
	c.logger.Debug("query done", zap.String("operation", op), zap.Int("count", len(results)))
	return nil
}

// release clears the loading flag if request id is still the latest, whichever way fetch
// returned.
func (c *Controller) release(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == id {
		c.loading = false
	}
}
