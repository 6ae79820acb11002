package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	mqcontracts "todolist/contracts/mq"
	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/pkg/logger"
	"todolist/pkg/metrics"
	"todolist/pkg/otel"
	"todolist/pkg/rbac"
	"todolist/pkg/util"
)

// User-facing messages.
const (
	MsgInvalidFields  = "Invalid fields."
	MsgInvalidStatus  = "Invalid status filter."
	MsgInternalError  = "Internal system error."
	MsgCreated        = "Task created successfully."
	MsgUpdated        = "Task edited successfully."
	MsgDeleted        = "Task deleted successfully."
	MsgNotFound       = "Task not found."
	MsgNotYours       = "This task is not yours."
	MsgAdminOnly      = "Only administrators can list every task."
	msgCompletedFmt   = "%s completed"
	msgUncompletedFmt = "%s not completed"
)

// Store is the persistence the service needs; *repository.TaskRepository
// implements it. Lookups and writes of a missing row return
// repository.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, t *model.Task) error
	FindByID(ctx context.Context, id int) (*model.Task, error)
	ListAll(ctx context.Context) ([]model.Task, error)
	ListByUser(ctx context.Context, userID int) ([]model.Task, error)
	ListByStatus(ctx context.Context, status model.Status) ([]model.Task, error)
	SearchByTitle(ctx context.Context, userID int, query string) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id int) error
}

// EventPublisher receives task lifecycle events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// TaskUpdate is the submitted edit form. Status is optional; the empty
// value keeps the current status.
type TaskUpdate struct {
	Title       string
	Description string
	Status      model.Status
}

// ToggleResult describes the outcome of a status flip.
type ToggleResult struct {
	Task      *model.Task
	Status    model.Status
	Completed bool
	Message   string
}

type Service struct {
	store  Store
	events EventPublisher
	logger *zap.Logger
}

// NewService wires the task service. events may be nil.
func NewService(store Store, events EventPublisher, logger *zap.Logger) *Service {
	return &Service{store: store, events: events, logger: logger}
}

// ListTasks returns the actor's tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, actor *model.Principal) ([]model.Task, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	tasks, err := s.store.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, s.systemError(ctx, "list", err)
	}
	return tasks, nil
}

// FilterTasks returns every task with exactly the given status. The result
// is not restricted to the actor's own tasks.
func (s *Service) FilterTasks(ctx context.Context, actor *model.Principal, status string) ([]model.Task, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	if status == "" {
		return s.ListTasks(ctx, actor)
	}
	st := model.Status(status)
	if !st.Valid() {
		return nil, apperr.Validation(MsgInvalidStatus)
	}

	tasks, err := s.store.ListByStatus(ctx, st)
	if err != nil {
		return nil, s.systemError(ctx, "filter", err)
	}
	return tasks, nil
}

// SearchTasks returns the actor's tasks whose title contains query, ignoring
// case. An empty query lists all of the actor's tasks.
func (s *Service) SearchTasks(ctx context.Context, actor *model.Principal, query string) ([]model.Task, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	if query == "" {
		return s.ListTasks(ctx, actor)
	}
	tasks, err := s.store.SearchByTitle(ctx, actor.UserID, query)
	if err != nil {
		return nil, s.systemError(ctx, "search", err)
	}
	return tasks, nil
}

// AllTasks lists every task of every user. Admin only.
func (s *Service) AllTasks(ctx context.Context, actor *model.Principal) ([]model.Task, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	if err := rbac.CheckPermission(actor.UserID, actor.Role, rbac.PermissionListAllTasks); err != nil {
		return nil, apperr.Forbidden(MsgAdminOnly)
	}
	tasks, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.systemError(ctx, "list_all", err)
	}
	return tasks, nil
}

func (s *Service) CreateTask(ctx context.Context, actor *model.Principal, title, description string) (t *model.Task, err error) {
	ctx, span := otel.StartSpan(ctx, "task.create")
	defer func() { observe(span, "create", err) }()

	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	title, description, err = validateFields(title, description)
	if err != nil {
		return nil, err
	}

	t = &model.Task{
		UserID:      actor.UserID,
		Title:       title,
		Description: description,
		Status:      model.StatusDoing,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return nil, s.systemError(ctx, "create", err)
	}

	s.publish(ctx, mqcontracts.RoutingKeyTaskCreated, mqcontracts.TaskCreatedPayload{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	})
	return t, nil
}

// GetTask loads one task by id for any logged-in actor.
func (s *Service) GetTask(ctx context.Context, actor *model.Principal, id int) (*model.Task, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	return s.load(ctx, id)
}

// ToggleStatus flips a task between doing and done. It performs no
// authentication or ownership check.
func (s *Service) ToggleStatus(ctx context.Context, id int) (res *ToggleResult, err error) {
	ctx, span := otel.StartSpan(ctx, "task.toggle")
	defer func() { observe(span, "toggle", err) }()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	t.Status = from.Toggle()
	if err := s.store.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, s.systemError(ctx, "toggle", err)
	}

	s.publish(ctx, mqcontracts.RoutingKeyTaskStatusChanged, mqcontracts.TaskStatusChangedPayload{
		TaskID: t.ID,
		UserID: t.UserID,
		From:   string(from),
		To:     string(t.Status),
	})

	res = &ToggleResult{Task: t, Status: t.Status}
	if t.Status == model.StatusDone {
		res.Completed = true
		res.Message = fmt.Sprintf(msgCompletedFmt, t)
	} else {
		res.Message = fmt.Sprintf(msgUncompletedFmt, t)
	}
	return res, nil
}

// UpdateTask applies the edit form to a task owned by actor.
func (s *Service) UpdateTask(ctx context.Context, actor *model.Principal, id int, upd TaskUpdate) (t *model.Task, err error) {
	ctx, span := otel.StartSpan(ctx, "task.update")
	defer func() { observe(span, "update", err) }()

	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	t, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rbac.CheckOwner(actor.UserID, t.UserID); err != nil {
		return nil, apperr.Forbidden(MsgNotYours)
	}

	title, description, err := validateFields(upd.Title, upd.Description)
	if err != nil {
		return nil, err
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return nil, apperr.Validation(MsgInvalidFields)
	}

	from := t.Status
	t.Title = title
	t.Description = description
	if upd.Status != "" {
		t.Status = upd.Status
	}

	if err := s.store.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, s.systemError(ctx, "update", err)
	}

	s.publish(ctx, mqcontracts.RoutingKeyTaskUpdated, mqcontracts.TaskUpdatedPayload{
		TaskID: t.ID,
		UserID: t.UserID,
		Title:  t.Title,
		Status: string(t.Status),
	})
	if from != t.Status {
		s.publish(ctx, mqcontracts.RoutingKeyTaskStatusChanged, mqcontracts.TaskStatusChangedPayload{
			TaskID: t.ID,
			UserID: t.UserID,
			From:   string(from),
			To:     string(t.Status),
		})
	}
	return t, nil
}

// DeleteTask removes a task irreversibly. Only the owner may delete it.
func (s *Service) DeleteTask(ctx context.Context, actor *model.Principal, id int) (err error) {
	ctx, span := otel.StartSpan(ctx, "task.delete")
	defer func() { observe(span, "delete", err) }()

	if actor == nil {
		return apperr.Unauthenticated()
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := rbac.CheckOwner(actor.UserID, t.UserID); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Rejected delete of foreign task",
			zap.Int("task_id", id),
			zap.Int("owner_id", t.UserID),
			zap.Int("requester_id", actor.UserID),
		)
		return apperr.Forbidden(MsgNotYours)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(id)
		}
		return s.systemError(ctx, "delete", err)
	}

	s.publish(ctx, mqcontracts.RoutingKeyTaskDeleted, mqcontracts.TaskDeletedPayload{
		TaskID:    id,
		UserID:    t.UserID,
		DeletedBy: actor.UserID,
	})
	return nil
}

func (s *Service) load(ctx context.Context, id int) (*model.Task, error) {
	t, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.systemError(ctx, "load", err)
	}
	return t, nil
}

func notFound(id int) error {
	return &apperr.NotFoundError{Resource: "task", ID: id, Message: MsgNotFound}
}

// validateFields trims both fields and rejects blank ones.
func validateFields(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return "", "", apperr.Validation(MsgInvalidFields)
	}
	return title, description, nil
}

func (s *Service) systemError(ctx context.Context, op string, err error) error {
	logger.WithTrace(ctx, s.logger).Error("Task store operation failed",
		zap.String("op", op),
		zap.String("error_type", util.ClassifyError(err)),
		zap.Error(err),
	)
	return apperr.System(MsgInternalError, err)
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish task event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

// observe records the action outcome and ends its span. Only system errors
// mark the span as failed.
func observe(span trace.Span, action string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case apperr.IsSystem(err):
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		outcome = "rejected"
	}
	span.SetAttributes(attribute.String("task.outcome", outcome))
	span.End()
	metrics.IncrementTaskAction(action, outcome)
}
