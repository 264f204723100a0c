package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Joseda-hg/taskmanager/internal/db"
	"github.com/Joseda-hg/taskmanager/internal/lock"
	"github.com/Joseda-hg/taskmanager/internal/model"
	"github.com/Joseda-hg/taskmanager/internal/remote"
)

// MaxIncomplete is how many incomplete assignments a user may hold before
// another one is refused.
const MaxIncomplete = 5

var (
	ErrNotFound     = errors.New("assignment not found")
	ErrInvalidInput = errors.New("invalid assignment")
)

// PolicyError is returned when a change would push a user past MaxIncomplete.
type PolicyError struct {
	UserID     int64
	Incomplete int64
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("user %d already has %d incomplete assignments; cannot add more", e.UserID, e.Incomplete)
}

// Source supplies the remote collection for SyncFromRemote.
type Source interface {
	FetchTodos(ctx context.Context) ([]*remote.Todo, error)
}

type Service struct {
	repo   db.AssignmentRepository
	locks  lock.Locker
	source Source
	log    *slog.Logger
}

type Option func(*Service)

func WithLocker(locker lock.Locker) Option {
	return func(s *Service) { s.locks = locker }
}

func WithSource(source Source) Option {
	return func(s *Service) { s.source = source }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.log = logger }
}

func New(repo db.AssignmentRepository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		locks: lock.NewLocal(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, query model.Query) ([]model.View, error) {
	assignments, err := s.repo.ListAll(ctx, query.Normalize())
	if err != nil {
		return nil, err
	}

	views := make([]model.View, 0, len(assignments))
	for _, assignment := range assignments {
		views = append(views, model.NewView(assignment))
	}
	return views, nil
}

// GetByID returns nil, nil when the assignment does not exist.
func (s *Service) GetByID(ctx context.Context, id int64) (*model.View, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, nil
	}

	view := model.NewView(*assignment)
	return &view, nil
}

// UpdateStatus sets the completion flag of one assignment. Moving a completed
// assignment back to incomplete is refused with a *PolicyError when its user
// already has MaxIncomplete incomplete assignments.
func (s *Service) UpdateStatus(ctx context.Context, id int64, completed bool) (bool, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	unlock, err := s.locks.Lock(ctx, userLockKey(current.UserID))
	if err != nil {
		return false, fmt.Errorf("lock user %d: %w", current.UserID, err)
	}
	defer unlock()

	err = s.repo.Transaction(ctx, func(repo db.AssignmentRepository) error {
		assignment, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if assignment == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}

		if !completed && assignment.Completed {
			if err := checkIncompleteLimit(ctx, repo, assignment.UserID); err != nil {
				return err
			}
		}

		assignment.Completed = completed
		return repo.Update(ctx, *assignment)
	})
	if err != nil {
		return false, err
	}

	s.log.Debug("assignment status updated", "id", id, "completed", completed)
	return true, nil
}

// Create stores a new assignment. An incomplete one counts against the
// user's incomplete limit.
func (s *Service) Create(ctx context.Context, intent model.CreateIntent) (model.View, error) {
	intent.Title = strings.TrimSpace(intent.Title)
	if intent.Title == "" {
		return model.View{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, userLockKey(intent.User))
	if err != nil {
		return model.View{}, fmt.Errorf("lock user %d: %w", intent.User, err)
	}
	defer unlock()

	var created model.Assignment
	err = s.repo.Transaction(ctx, func(repo db.AssignmentRepository) error {
		if !intent.Completed {
			if err := checkIncompleteLimit(ctx, repo, intent.User); err != nil {
				return err
			}
		}

		var err error
		created, err = repo.Create(ctx, intent)
		return err
	})
	if err != nil {
		return model.View{}, err
	}

	return model.NewView(created), nil
}

// SyncFromRemote copies the remote collection into storage in one batch.
// A bad status or an empty payload is logged and reported as success.
func (s *Service) SyncFromRemote(ctx context.Context) error {
	if s.source == nil {
		return errors.New("no remote source configured")
	}

	todos, err := s.source.FetchTodos(ctx)
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		s.log.Warn("remote sync skipped", "status", statusErr.StatusCode)
		return nil
	}
	if err != nil {
		return err
	}

	assignments := make([]model.Assignment, 0, len(todos))
	for _, todo := range todos {
		if todo == nil {
			continue
		}
		assignments = append(assignments, model.Assignment{
			ID:        todo.ID,
			Title:     todo.Title,
			Completed: todo.Completed,
			UserID:    todo.UserID,
		})
	}

	if len(assignments) == 0 {
		s.log.Info("remote sync found no data")
		return nil
	}

	if err := s.repo.BulkInsert(ctx, assignments); err != nil {
		return fmt.Errorf("store synced assignments: %w", err)
	}

	s.log.Info("remote sync finished", "inserted", len(assignments))
	return nil
}

func checkIncompleteLimit(ctx context.Context, repo db.AssignmentRepository, userID int64) error {
	incomplete, err := repo.CountIncompleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if incomplete >= MaxIncomplete {
		return &PolicyError{UserID: userID, Incomplete: incomplete}
	}
	return nil
}

func userLockKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
