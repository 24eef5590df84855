// Package app wires the record form and the directory together. The form reports every
// accepted create or update to the directory, which reloads; this is the only link between the
// two controllers.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/directory"
	"gitlab.com/dirk.krummacker/person-directory/internal/form"
	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/notify"
	"gitlab.com/dirk.krummacker/person-directory/internal/validation"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// ErrUnknownRecord is returned when an id is not part of the directory snapshot.
var ErrUnknownRecord = errors.New("record is not in the directory")

// App owns one directory and one form.
type App struct {
	Directory *directory.Controller
	Form      *form.Controller
	logger    *zap.Logger
}

// New builds the controllers on top of gw. A nil logger disables logging.
func New(gw gateway.Gateway, notices notify.Sink, logger *zap.Logger, opts ...form.Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := directory.New(gw, notices, logger.Named("directory"))
	opts = append([]form.Option{form.WithLogger(logger.Named("form"))}, opts...)
	return &App{
		Directory: dir,
		Form:      form.New(gw, notices, dir, opts...),
		logger:    logger,
	}
}

// Start loads the directory for the first time.
func (a *App) Start(ctx context.Context) error {
	return a.Directory.Reload(ctx)
}

// Find returns a copy of the record with the given id from the directory snapshot.
func (a *App) Find(id int64) (model.Person, error) {
	for _, p := range a.Directory.View().Results {
		if p.Id == id {
			return p, nil
		}
	}
	return model.Person{}, fmt.Errorf("%w: %d", ErrUnknownRecord, id)
}

// NewRecord opens the form with an empty draft.
func (a *App) NewRecord() error {
	return a.Form.Open(nil)
}

// Edit opens the form seeded with the record id of the directory.
func (a *App) Edit(id int64) error {
	p, err := a.Find(id)
	if err != nil {
		return err
	}
	return a.Form.Open(&p)
}

// Delete asks for the confirmation of the delete of record id.
func (a *App) Delete(id int64) error {
	p, err := a.Find(id)
	if err != nil {
		return err
	}
	return a.Directory.RequestDelete(p)
}

// Fill types values into the open form, in form order. It returns the validation errors of the
// fields it changed.
func (a *App) Fill(values map[validation.Field]string) (validation.Errors, error) {
	var errs validation.Errors
	for _, f := range validation.Fields {
		v, ok := values[f]
		if !ok {
			continue
		}
		reason, err := a.Form.ChangeField(f, v)
		if err != nil {
			return errs, err
		}
		errs.Set(f, reason)
	}
	return errs, nil
}
