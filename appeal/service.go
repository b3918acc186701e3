package appeal

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store abstracts the slot-backed repository for the service.
type Store interface {
	Load(ctx context.Context) ([]Appeal, error)
	Save(ctx context.Context, appeals []Appeal) error
}

// Recorder receives one observation per service call.
type Recorder interface {
	RecordOperation(op, outcome string)
}

const (
	OpList    = "list"
	OpGet     = "get"
	OpCreate  = "create"
	OpResolve = "resolve"
	OpDelete  = "delete"

	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// Service exposes the appeal operations. Each call runs its load-mutate-save
// cycle under one mutex, so use a single Service per slot.
type Service struct {
	mu            sync.Mutex
	store         Store
	idGenerator   func() string
	now           func() time.Time
	ignoreMissing bool
	order         ListOrder
	log           *logrus.Entry
	recorder      Recorder
}

func NewService(store Store) *Service {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	return &Service{
		store:         store,
		idGenerator:   func() string { return uuid.NewString() },
		now:           time.Now,
		ignoreMissing: true,
		order:         OrderLatestFirst,
		log:           logrus.NewEntry(silent),
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIgnoreMissing controls whether Resolve and Delete treat an unknown id
// as a silent no-op (true) or return ErrNotFound (false).
func (s *Service) WithIgnoreMissing(ignore bool) *Service {
	s.ignoreMissing = ignore
	return s
}

func (s *Service) WithListOrder(order ListOrder) *Service {
	s.order = order
	return s
}

func (s *Service) WithLogger(log *logrus.Entry) *Service {
	s.log = log
	return s
}

func (s *Service) WithRecorder(rec Recorder) *Service {
	s.recorder = rec
	return s
}

// ListActive returns unresolved appeals ordered by resolution deadline,
// latest first unless configured otherwise.
// Appeals sharing a deadline keep their stored relative order.
func (s *Service) ListActive(ctx context.Context) ([]Appeal, error) {
	s.mu.Lock()
	appeals, err := s.store.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.record(OpList, OutcomeError)
		return nil, err
	}

	active := make([]Appeal, 0, len(appeals))
	for _, a := range appeals {
		if !a.IsResolved {
			active = append(active, a)
		}
	}

	slices.SortStableFunc(active, func(a, b Appeal) int {
		if s.order == OrderLatestFirst {
			return b.ResolutionDeadline.Compare(a.ResolutionDeadline)
		}
		return a.ResolutionDeadline.Compare(b.ResolutionDeadline)
	})

	s.record(OpList, OutcomeOK)
	return active, nil
}

// Get returns the appeal with id, resolved or not.
func (s *Service) Get(ctx context.Context, id string) (Appeal, error) {
	s.mu.Lock()
	appeals, err := s.store.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.record(OpGet, OutcomeError)
		return Appeal{}, err
	}

	idx := indexOf(appeals, id)
	if idx < 0 {
		s.record(OpGet, OutcomeMissing)
		return Appeal{}, ErrNotFound
	}
	s.record(OpGet, OutcomeOK)
	return appeals[idx], nil
}

// Create validates draft against the current time and appends a new
// unresolved appeal. Validation failures return a *ValidationError and leave
// the store untouched.
func (s *Service) Create(ctx context.Context, draft Draft) (Appeal, error) {
	entryTime := s.now()
	if err := ValidateDraft(ctx, draft, entryTime); err != nil {
		s.record(OpCreate, OutcomeInvalid)
		return Appeal{}, err
	}

	created := Appeal{
		ID:                 s.idGenerator(),
		Description:        draft.Description,
		EntryTime:          entryTime,
		ResolutionDeadline: draft.ResolutionDeadline,
		IsResolved:         false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appeals, err := s.store.Load(ctx)
	if err != nil {
		s.record(OpCreate, OutcomeError)
		return Appeal{}, err
	}
	if indexOf(appeals, created.ID) >= 0 {
		s.record(OpCreate, OutcomeError)
		return Appeal{}, fmt.Errorf("%w: %s", ErrDuplicateID, created.ID)
	}

	appeals = append(appeals, created)
	if err := s.store.Save(ctx, appeals); err != nil {
		s.record(OpCreate, OutcomeError)
		return Appeal{}, err
	}

	s.log.WithFields(logrus.Fields{
		"appeal_id": created.ID,
		"deadline":  created.ResolutionDeadline.Format(time.RFC3339),
	}).Info("appeal created")
	s.record(OpCreate, OutcomeOK)
	return created, nil
}

// Resolve marks the appeal as resolved. Resolving twice is a no-op.
func (s *Service) Resolve(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appeals, err := s.store.Load(ctx)
	if err != nil {
		s.record(OpResolve, OutcomeError)
		return err
	}

	idx := indexOf(appeals, id)
	if idx < 0 {
		return s.missing(OpResolve, id)
	}
	if appeals[idx].IsResolved {
		s.record(OpResolve, OutcomeOK)
		return nil
	}

	appeals[idx].IsResolved = true
	if err := s.store.Save(ctx, appeals); err != nil {
		s.record(OpResolve, OutcomeError)
		return err
	}

	s.log.WithField("appeal_id", id).Info("appeal resolved")
	s.record(OpResolve, OutcomeOK)
	return nil
}

// Delete removes the appeal, keeping the remaining ones in order.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appeals, err := s.store.Load(ctx)
	if err != nil {
		s.record(OpDelete, OutcomeError)
		return err
	}

	idx := indexOf(appeals, id)
	if idx < 0 {
		return s.missing(OpDelete, id)
	}

	appeals = slices.Delete(appeals, idx, idx+1)
	if err := s.store.Save(ctx, appeals); err != nil {
		s.record(OpDelete, OutcomeError)
		return err
	}

	s.log.WithField("appeal_id", id).Info("appeal deleted")
	s.record(OpDelete, OutcomeOK)
	return nil
}

func (s *Service) missing(op, id string) error {
	s.record(op, OutcomeMissing)
	if s.ignoreMissing {
		s.log.WithFields(logrus.Fields{"op": op, "appeal_id": id}).Debug("unknown appeal ignored")
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Service) record(op, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordOperation(op, outcome)
	}
}

func indexOf(appeals []Appeal, id string) int {
	return slices.IndexFunc(appeals, func(a Appeal) bool { return a.ID == id })
}

// ParseListOrder maps a configuration value onto a ListOrder.
func ParseListOrder(v string) (ListOrder, error) {
	switch ListOrder(v) {
	case "", OrderLatestFirst:
		return OrderLatestFirst, nil
	case OrderNearestFirst:
		return OrderNearestFirst, nil
	default:
		return "", fmt.Errorf("appeal: unknown list order %q", v)
	}
}
