package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"todolist/internal/model"
)

const taskColumns = `id, user_id, title, description, status, created_at`

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// Insert stores t and fills in its generated id and created_at.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int("user_id", t.UserID),
		zap.String("title", t.Title),
		zap.String("status", string(t.Status)),
	)
	query := `
        INSERT INTO tasks (user_id, title, description, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Status),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("user_id", t.UserID),
		)
		return err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("user_id", t.UserID),
	)
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load task", zap.Error(err), zap.Int("task_id", id))
		return nil, err
	}
	return t, nil
}

// ListAll returns every task of every user, newest first.
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        ORDER BY created_at DESC, id DESC
    `
	return r.list(ctx, "list_all", query)
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	return r.list(ctx, "list_by_user", query, userID)
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status model.Status) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE status = $1
        ORDER BY created_at DESC, id DESC
    `
	return r.list(ctx, "list_by_status", query, string(status))
}

// SearchByTitle returns the user's tasks whose title contains query,
// ignoring case. LIKE wildcards in query match literally.
func (r *TaskRepository) SearchByTitle(ctx context.Context, userID int, query string) ([]model.Task, error) {
	sql := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE user_id = $1
        AND title ILIKE '%' || $2 || '%' ESCAPE '\'
        ORDER BY created_at DESC, id DESC
    `
	return r.list(ctx, "search_by_title", sql, userID, escapeLike(query))
}

// Update writes title, description and status. Owner and created_at never change.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
        UPDATE tasks
        SET title = $2, description = $3, status = $4
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query, t.ID, t.Title, t.Description, string(t.Status))
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.Error(err),
			zap.Int("task_id", t.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Task updated",
		zap.Int("task_id", t.ID),
		zap.String("status", string(t.Status)),
	)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.Error(err),
			zap.Int("task_id", id),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Task deleted", zap.Int("task_id", id))
	return nil
}

func (r *TaskRepository) list(ctx context.Context, op string, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task row", zap.String("op", op), zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to iterate task rows", zap.String("op", op), zap.Error(err))
		return nil, err
	}

	r.logger.Debug("Tasks listed successfully",
		zap.String("op", op),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t      model.Task
		status string
	)
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&status,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = model.Status(status)
	return &t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
