package form

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/muurk/chronicle/internal/record"
)

// State is the lifecycle position of an edit session
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Mode selects between creating a new entity and modifying an existing one
type Mode int

const (
	ModeCreate Mode = iota
	ModeModify
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}
	return "modify"
}

// Kind is the entity a controller edits
type Kind int

const (
	KindDevice Kind = iota
	KindSettings
)

func (k Kind) String() string {
	if k == KindSettings {
		return "settings"
	}
	return "device"
}

// DeviceTemplate lists the fields of an empty device creation form
var DeviceTemplate = []string{
	"name",
	"deviceName",
	"vendor",
	"user",
	"password",
	"host",
	"port",
	"sshVerbosity",
	"kexMethods",
	"hostkeyAlgorithms",
}

// RequiredCreateFields must be non-empty when creating a device
var RequiredCreateFields = []string{"name", "deviceName", "vendor", "password", "host"}

// SettingsFields lists the global SSH defaults
var SettingsFields = []string{
	"user",
	"password",
	"port",
	"sshVerbosity",
	"kexMethods",
	"hostkeyAlgorithms",
}

// Backend performs the remote calls behind a controller
type Backend interface {
	// Fetch returns the current server-side record for key
	Fetch(ctx context.Context, key string) (record.Record, error)
	// Create creates the entity key from a full field set
	Create(ctx context.Context, key string, changes record.ChangeSet) error
	// Modify applies a partial update to key
	Modify(ctx context.Context, key string, changes record.ChangeSet) error
}

// Outcome describes a completed submission
type Outcome struct {
	Mode    Mode
	Key     string
	Changes record.ChangeSet
	NoOp    bool // nothing changed, no request was sent
}

// Field is one row of a session snapshot
type Field struct {
	Name     string
	Value    string
	Touched  bool
	Required bool
	Numeric  bool
}

// Session is an immutable snapshot of an edit session
type Session struct {
	Kind   Kind
	Mode   Mode
	State  State
	Key    string
	Fields []Field
	Err    error
}

// Controller owns the edit buffer of a single entity and turns it into the
// exact payload to submit. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	kind    Kind
	backend Backend

	state    State
	mode     Mode
	key      string
	baseline record.Record
	buffer   *record.EditBuffer
	err      error

	// seq invalidates in-flight OpenModify fetches when a newer session starts
	seq uint64

	onSuccess func(ctx context.Context, outcome Outcome)
}

// NewController creates a controller in the Closed state
func NewController(kind Kind, backend Backend) *Controller {
	return &Controller{
		kind:    kind,
		backend: backend,
	}
}

// OnSuccess registers a hook called with the submit context and outcome
// after every successful submission that reached the server. The hook
// re-fetches the entity so the server's post-write state becomes the new
// baseline.
func (c *Controller) OnSuccess(fn func(ctx context.Context, outcome Outcome)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSuccess = fn
}

// OpenCreate starts a creation session from the empty device template
func (c *Controller) OpenCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kind == KindSettings {
		return ErrCreateUnsupported
	}
	if c.state == StateSubmitting {
		return ErrBusy
	}

	c.seq++
	c.state = StateOpen
	c.mode = ModeCreate
	c.key = ""
	c.baseline = nil
	c.buffer = record.NewEditBuffer(DeviceTemplate...)
	c.err = nil
	return nil
}

// OpenModify starts a modify session from a live fetch of key. A failed
// fetch leaves the controller Closed.
func (c *Controller) OpenModify(ctx context.Context, key string) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.seq++
	seq := c.seq
	c.close()
	c.mu.Unlock()

	rec, err := c.backend.Fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return fmt.Errorf("%w: %s", ErrSuperseded, key)
	}
	if err != nil {
		return err
	}

	c.state = StateOpen
	c.mode = ModeModify
	c.key = key
	c.baseline = rec
	c.buffer = record.BufferFrom(rec, c.layout()...)
	c.err = nil
	return nil
}

// layout returns the fields always shown for this kind, in display order
func (c *Controller) layout() []string {
	if c.kind == KindSettings {
		return SettingsFields
	}
	return DeviceTemplate
}

// Set updates a buffer field
func (c *Controller) Set(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return ErrNotOpen
	case StateSubmitting:
		return ErrBusy
	}

	c.buffer.Set(field, value)
	return nil
}

// Payload validates the buffer and returns the change set a submission
// would send, without sending it
func (c *Controller) Payload() (record.ChangeSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return record.ChangeSet{}, ErrNotOpen
	}
	_, changes, err := c.payload()
	return changes, err
}

// payload returns the target key and the change set. Caller holds mu.
func (c *Controller) payload() (string, record.ChangeSet, error) {
	if c.mode == ModeModify {
		changes, err := record.Diff(c.baseline, c.buffer)
		if err != nil {
			return "", record.ChangeSet{}, invalidValues(err)
		}
		return c.key, changes, nil
	}

	var missing []string
	var errs *multierror.Error
	for _, f := range RequiredCreateFields {
		if strings.TrimSpace(c.buffer.Get(f)) == "" {
			missing = append(missing, f)
			errs = multierror.Append(errs, fmt.Errorf("%s is required", f))
		}
	}

	supplied, err := record.Supplied(c.buffer)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	if len(missing) > 0 {
		return "", record.ChangeSet{}, &ValidationError{Message: "missing required fields", Fields: missing, Err: errs}
	}
	if errs.ErrorOrNil() != nil {
		return "", record.ChangeSet{}, &ValidationError{Message: "invalid field values", Err: errs}
	}

	key := strings.TrimSpace(c.buffer.Get(record.NameField))
	return key, supplied.Without(record.NameField), nil
}

func invalidValues(err error) *ValidationError {
	errs, ok := err.(*multierror.Error)
	if !ok {
		errs = multierror.Append(nil, err)
	}
	return &ValidationError{Message: "invalid field values", Err: errs}
}

// Submit validates and sends the buffer. On success the session closes and
// the OnSuccess hook runs; on failure the session stays open with the error.
// A modify with no changes closes the session without any backend call.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()

	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return Outcome{}, ErrNotOpen
	case StateSubmitting:
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}

	key, changes, err := c.payload()
	if err != nil {
		c.err = err
		c.mu.Unlock()
		return Outcome{}, err
	}

	outcome := Outcome{Mode: c.mode, Key: key, Changes: changes}

	if c.mode == ModeModify && changes.IsEmpty() {
		outcome.NoOp = true
		c.close()
		c.mu.Unlock()
		return outcome, nil
	}

	c.state = StateSubmitting
	c.err = nil
	mode := c.mode
	c.mu.Unlock()

	if mode == ModeCreate {
		err = c.backend.Create(ctx, key, changes)
	} else {
		err = c.backend.Modify(ctx, key, changes)
	}

	c.mu.Lock()
	if err != nil {
		c.state = StateOpen
		c.err = err
		c.mu.Unlock()
		return Outcome{}, err
	}

	c.close()
	hook := c.onSuccess
	c.mu.Unlock()

	if hook != nil {
		hook(ctx, outcome)
	}
	return outcome, nil
}

// Cancel discards the open session
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrBusy
	}
	c.seq++
	c.close()
	return nil
}

// close resets to Closed. Caller holds mu.
func (c *Controller) close() {
	c.state = StateClosed
	c.key = ""
	c.baseline = nil
	c.buffer = nil
	c.err = nil
}

// Target returns the key a submission would address: the fetched key of a
// modify session, or the name typed into a create session
func (c *Controller) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeCreate && c.buffer != nil {
		return strings.TrimSpace(c.buffer.Get(record.NameField))
	}
	return c.key
}

// Kind returns the entity kind this controller edits
func (c *Controller) Kind() Kind {
	return c.kind
}

// State returns the current session state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last failed submission of the open session
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot returns a copy of the session for rendering
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		Kind:  c.kind,
		Mode:  c.mode,
		State: c.state,
		Key:   c.key,
		Err:   c.err,
	}
	if c.buffer == nil {
		return s
	}

	required := make(map[string]bool)
	if c.mode == ModeCreate {
		for _, f := range RequiredCreateFields {
			required[f] = true
		}
	}

	for _, name := range c.buffer.Fields() {
		s.Fields = append(s.Fields, Field{
			Name:     name,
			Value:    c.buffer.Get(name),
			Touched:  c.buffer.IsTouched(name),
			Required: required[name],
			Numeric:  record.IsNumeric(name),
		})
	}
	return s
}

// Baseline returns a copy of the record the open modify session diffs against
func (c *Controller) Baseline() record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.Clone()
}
