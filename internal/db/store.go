package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Joseda-hg/taskmanager/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRepository is the storage contract the service works against.
type AssignmentRepository interface {
	ListAll(ctx context.Context, query model.Query) ([]model.Assignment, error)
	// FindByID returns nil without an error when no row has id.
	FindByID(ctx context.Context, id int64) (*model.Assignment, error)
	Update(ctx context.Context, assignment model.Assignment) error
	BulkInsert(ctx context.Context, assignments []model.Assignment) error
	CountIncompleteByUser(ctx context.Context, userID int64) (int64, error)
	Create(ctx context.Context, intent model.CreateIntent) (model.Assignment, error)
	Transaction(ctx context.Context, fn func(repo AssignmentRepository) error) error
}

type Store struct {
	DB *gorm.DB
}

type assignmentRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string `gorm:"column:title;not null"`
	Completed bool   `gorm:"column:completed;not null;index:idx_assignments_user_completed,priority:2"`
	UserID    int64  `gorm:"column:userId;not null;index:idx_assignments_user_completed,priority:1"`
}

func (assignmentRow) TableName() string {
	return "assignments"
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// NewSQLiteStore opens (or creates) the sqlite database at path.
func NewSQLiteStore(path string) (*Store, error) {
	sqlDB, err := Open(path)
	if err != nil {
		return nil, err
	}

	gdb, err := OpenGorm(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return NewStore(gdb), nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) ListAll(ctx context.Context, query model.Query) ([]model.Assignment, error) {
	q := query.Normalize()
	offset, ok := q.Offset()
	if !ok {
		return []model.Assignment{}, nil
	}

	tx := s.DB.WithContext(ctx).Model(&assignmentRow{})
	if q.Title != "" {
		tx = tx.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(q.Title))
	}
	tx = applyOrder(tx, model.SortField(q.Sort), q.Descending())

	var rows []assignmentRow
	if err := tx.Offset(offset).Limit(q.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	result := make([]model.Assignment, 0, len(rows))
	for _, row := range rows {
		result = append(result, mapAssignment(row))
	}
	return result, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*model.Assignment, error) {
	var row assignmentRow
	err := s.DB.WithContext(ctx).Where(map[string]any{"id": id}).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find assignment %d: %w", id, err)
	}

	assignment := mapAssignment(row)
	return &assignment, nil
}

func (s *Store) Update(ctx context.Context, assignment model.Assignment) error {
	row := toRow(assignment)
	result := s.DB.WithContext(ctx).Model(&assignmentRow{}).
		Where(map[string]any{"id": row.ID}).
		Updates(map[string]any{"title": row.Title, "completed": row.Completed, "userId": row.UserID})
	if result.Error != nil {
		return fmt.Errorf("update assignment %d: %w", assignment.ID, result.Error)
	}
	return nil
}

func (s *Store) BulkInsert(ctx context.Context, assignments []model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	rows := make([]assignmentRow, 0, len(assignments))
	for _, assignment := range assignments {
		rows = append(rows, toRow(assignment))
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
		if tx.Dialector.Name() == DriverPostgres {
			// explicit ids leave the serial sequence behind
			if err := tx.Exec("SELECT setval(pg_get_serial_sequence('assignments', 'id'), COALESCE(MAX(id), 1)) FROM assignments").Error; err != nil {
				return fmt.Errorf("reset assignment id sequence: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) CountIncompleteByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&assignmentRow{}).
		Where(map[string]any{"userId": userID, "completed": false}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count incomplete assignments for user %d: %w", userID, err)
	}
	return count, nil
}

func (s *Store) Create(ctx context.Context, intent model.CreateIntent) (model.Assignment, error) {
	row := assignmentRow{
		Title:     intent.Title,
		Completed: intent.Completed,
		UserID:    intent.User,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return mapAssignment(row), nil
}

func (s *Store) Transaction(ctx context.Context, fn func(repo AssignmentRepository) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func applyOrder(tx *gorm.DB, field model.SortField, desc bool) *gorm.DB {
	id := clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}
	switch field {
	case model.SortByTitle:
		direction := "ASC"
		if desc {
			direction = "DESC"
		}
		return tx.Order("LOWER(title) " + direction).Order(id)
	case model.SortByUserID:
		return tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "userId"}, Desc: desc}).Order(id)
	case model.SortByCompleted:
		return tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "completed"}, Desc: desc}).Order(id)
	default:
		return tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
}

func likePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(value)) + "%"
}

func mapAssignment(row assignmentRow) model.Assignment {
	return model.Assignment{
		ID:        row.ID,
		Title:     row.Title,
		Completed: row.Completed,
		UserID:    row.UserID,
	}
}

func toRow(assignment model.Assignment) assignmentRow {
	return assignmentRow{
		ID:        assignment.ID,
		Title:     assignment.Title,
		Completed: assignment.Completed,
		UserID:    assignment.UserID,
	}
}
