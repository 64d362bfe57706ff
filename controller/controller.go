// Package controller owns the in-memory user collection and runs the load, create, update and delete flows.
//
// A Controller is the single writer of that state. Views read it through Snapshot and express intent by calling
// the operation methods. Blocking service calls run outside the lock; the state machine (Idle, Loading,
// Submitting) keeps a second submission from starting while one is in flight.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"UserManagerService/commands"
	"UserManagerService/models"
	"UserManagerService/validation"
)

// User-visible messages.
const (
	LoadFailedMessage   = "Failed to load users. Please check your internet connection."
	DeleteFailedMessage = "Failed to delete user"
	CreatedMessage      = "User created successfully!"
	UpdatedMessage      = "User updated successfully!"
	DeletedMessage      = "User deleted successfully!"
)

var (
	// ErrBusy is returned when an operation starts while another is in flight.
	ErrBusy = errors.New("another operation is in progress")

	// ErrUnknownRecord is returned when an id is not in the collection.
	ErrUnknownRecord = errors.New("user not found")

	// ErrFormClosed is returned by form operations when no form is open.
	ErrFormClosed = errors.New("form is not open")

	// ErrNoPendingDelete is returned by ConfirmDelete when the dialog is closed.
	ErrNoPendingDelete = errors.New("no delete is pending")
)

// ValidationFailure carries the field errors that stopped a submission before any request was made.
type ValidationFailure struct {
	Errors validation.Errors
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%d field(s) failed validation", len(e.Errors))
}

// RecordService is the gateway client the controller depends on.
type RecordService interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, data commands.SaveUserCommand) (*models.User, error)
	Update(ctx context.Context, id string, data commands.SaveUserCommand) (*models.User, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// State is the controller's activity.
type State int

const (
	Idle State = iota
	Loading
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Form is the create/edit form state.
type Form struct {
	Open bool
	// Editing is set when the form edits the record ID; otherwise it creates a new record.
	Editing     bool
	ID          string
	Values      map[string]string
	Errors      validation.Errors
	SubmitError string
	generation  uint64
}

// DeleteDialog is the confirmation dialog state.
type DeleteDialog struct {
	Open     bool
	TargetID string
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	State        State
	Users        []models.User
	Error        string
	Notification *models.Notification
	Form         Form
	Dialog       DeleteDialog
}

// Busy reports whether a request is in flight.
func (s Snapshot) Busy() bool {
	return s.State != Idle
}

// Controller is the top-level state owner.
type Controller struct {
	svc    RecordService
	schema *validation.Schema
	log    *logrus.Logger
	now    func() time.Time

	mu           sync.Mutex
	state        State
	users        []models.User
	banner       string
	notification *models.Notification
	form         Form
	dialog       DeleteDialog
	generation   uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for operation outcomes.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithClock replaces time.Now, which stamps notification expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New returns an idle controller with an empty collection.
func New(svc RecordService, schema *validation.Schema, opts ...Option) *Controller {
	c := &Controller{
		svc:    svc,
		schema: schema,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the field schema the controller validates with.
func (c *Controller) Schema() *validation.Schema {
	return c.schema
}

// Load replaces the collection with the gateway's.
// On failure the collection is cleared and the page banner is set.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = Loading
	c.banner = ""
	c.mu.Unlock()

	users, err := c.svc.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	if err != nil {
		c.log.WithFields(logrus.Fields{"operation": "load users"}).Error(err.Error())
		c.users = nil
		c.banner = LoadFailedMessage
		return err
	}
	c.users = users
	c.banner = ""
	c.log.WithFields(logrus.Fields{"operation": "load users", "count": len(users)}).Info("users loaded")
	return nil
}

// OpenAdd opens the form with every field blank and no id.
func (c *Controller) OpenAdd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openFormLocked(Form{Values: c.schema.Blank()})
}

// OpenEdit opens the form pre-populated with the record id.
func (c *Controller) OpenEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	values := c.schema.Blank()
	for name := range values {
		values[name] = c.users[i].Value(name)
	}
	c.openFormLocked(Form{Editing: true, ID: id, Values: values})
	return nil
}

func (c *Controller) openFormLocked(f Form) {
	c.generation++
	f.Open = true
	f.generation = c.generation
	c.form = f
}

// CloseForm closes the form. A request already sent for it still completes, but its outcome no longer touches the form.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFormLocked()
}

func (c *Controller) closeFormLocked() {
	c.generation++
	c.form = Form{}
}

// SetField updates one form value and clears that field's error.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.form.Open {
		return ErrFormClosed
	}
	if c.state == Submitting {
		return ErrBusy
	}
	if _, ok := c.schema.Field(name); !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	c.form.Values[name] = value
	delete(c.form.Errors, name)
	return nil
}

// Submit validates the form and, if valid, creates or updates the record.
//
// Values are trimmed first. Validation failures are stored on the form and returned as *ValidationFailure
// without any request.
// A create re-fetches the whole collection so gateway-assigned ids appear; an update splices the
// submitted fields into the existing record. A gateway failure is stored as the form's submit error.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if !c.form.Open {
		c.mu.Unlock()
		return ErrFormClosed
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	// The gateway stores trimmed values, so validation and the mirror see them the same way.
	values := make(map[string]string, len(c.form.Values))
	for k, v := range c.form.Values {
		values[k] = strings.TrimSpace(v)
	}
	if errs := c.schema.Validate(values); errs != nil {
		c.form.Errors = errs
		c.mu.Unlock()
		return &ValidationFailure{Errors: errs}
	}
	c.form.Errors = nil
	c.form.SubmitError = ""
	c.state = Submitting
	gen, editing, id := c.form.generation, c.form.Editing, c.form.ID
	c.mu.Unlock()

	data := commands.NewSaveUserCommand(values)
	if editing {
		return c.submitUpdate(ctx, gen, id, data)
	}
	return c.submitCreate(ctx, gen, data)
}

func (c *Controller) submitCreate(ctx context.Context, gen uint64, data commands.SaveUserCommand) error {
	created, err := c.svc.Create(ctx, data)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state = Idle
		c.failFormLocked(gen, "create user", err)
		return err
	}

	users, listErr := c.svc.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	if listErr != nil {
		// The user exists on the gateway; keep the last mirror and ask for a reload.
		c.log.WithFields(logrus.Fields{"operation": "refresh after create"}).Error(listErr.Error())
		c.banner = LoadFailedMessage
	} else {
		c.users = users
		c.banner = ""
	}
	c.log.WithFields(logrus.Fields{"operation": "create user", "id": created.ID}).Info("user created")
	c.notifyLocked(CreatedMessage, models.SeveritySuccess)
	if c.form.Open && c.form.generation == gen {
		c.closeFormLocked()
	}
	return nil
}

func (c *Controller) submitUpdate(ctx context.Context, gen uint64, id string, data commands.SaveUserCommand) error {
	_, err := c.svc.Update(ctx, id, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	if err != nil {
		c.failFormLocked(gen, "update user", err)
		return err
	}
	if i := c.indexLocked(id); i >= 0 {
		c.users[i].Merge(data.Values())
	}
	c.log.WithFields(logrus.Fields{"operation": "update user", "id": id}).Info("user updated")
	c.notifyLocked(UpdatedMessage, models.SeveritySuccess)
	if c.form.Open && c.form.generation == gen {
		c.closeFormLocked()
	}
	return nil
}

func (c *Controller) failFormLocked(gen uint64, operation string, err error) {
	c.log.WithFields(logrus.Fields{"operation": operation}).Error(err.Error())
	if c.form.Open && c.form.generation == gen {
		c.form.SubmitError = err.Error()
	}
}

// RequestDelete opens the confirmation dialog for id.
func (c *Controller) RequestDelete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = DeleteDialog{Open: true, TargetID: id}
}

// CancelDelete closes the confirmation dialog.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = DeleteDialog{}
}

// ConfirmDelete deletes the pending target. On success the record leaves the collection and the dialog closes;
// on failure the page banner is set, the collection is unchanged and the dialog stays open.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if !c.dialog.Open {
		c.mu.Unlock()
		return ErrNoPendingDelete
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = Submitting
	id := c.dialog.TargetID
	c.mu.Unlock()

	_, err := c.svc.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	if err != nil {
		c.log.WithFields(logrus.Fields{"operation": "delete user", "id": id}).Error(err.Error())
		c.banner = DeleteFailedMessage
		return err
	}
	if i := c.indexLocked(id); i >= 0 {
		c.users = append(c.users[:i:i], c.users[i+1:]...)
	}
	c.log.WithFields(logrus.Fields{"operation": "delete user", "id": id}).Info("user deleted")
	c.notifyLocked(DeletedMessage, models.SeveritySuccess)
	if c.dialog.Open && c.dialog.TargetID == id {
		c.dialog = DeleteDialog{}
	}
	return nil
}

// Notify shows a transient notification.
func (c *Controller) Notify(message string, severity models.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyLocked(message, severity)
}

func (c *Controller) notifyLocked(message string, severity models.Severity) {
	c.notification = &models.Notification{
		Message:   message,
		Severity:  severity,
		ExpiresAt: c.now().Add(models.NotificationTTL),
	}
}

// DismissNotification hides the current notification.
func (c *Controller) DismissNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notification = nil
}

// DismissError clears the page banner.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = ""
}

// Snapshot returns a deep copy of the state. An expired notification is left out.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:  c.state,
		Error:  c.banner,
		Dialog: c.dialog,
		Form:   c.form,
	}
	if c.users != nil {
		s.Users = make([]models.User, len(c.users))
		copy(s.Users, c.users)
	}
	if c.notification != nil && !c.notification.Expired(c.now()) {
		n := *c.notification
		s.Notification = &n
	}
	if c.form.Values != nil {
		s.Form.Values = make(map[string]string, len(c.form.Values))
		for k, v := range c.form.Values {
			s.Form.Values[k] = v
		}
	}
	if c.form.Errors != nil {
		s.Form.Errors = make(validation.Errors, len(c.form.Errors))
		for k, v := range c.form.Errors {
			s.Form.Errors[k] = v
		}
	}
	return s
}

func (c *Controller) indexLocked(id string) int {
	for i, u := range c.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
