package mq

import "time"

// Routing keys on the todolist.events exchange.
const (
	RoutingKeyTaskCreated       = "task.created"
	RoutingKeyTaskUpdated       = "task.updated"
	RoutingKeyTaskStatusChanged = "task.status_changed"
	RoutingKeyTaskDeleted       = "task.deleted"
	RoutingKeyPasswordChanged   = "account.password_changed"
)

type TaskCreatedPayload struct {
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskUpdatedPayload struct {
	TaskID int    `json:"task_id"`
	UserID int    `json:"user_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type TaskStatusChangedPayload struct {
	TaskID int    `json:"task_id"`
	UserID int    `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type TaskDeletedPayload struct {
	TaskID    int `json:"task_id"`
	UserID    int `json:"user_id"`
	DeletedBy int `json:"deleted_by"`
}

// PasswordChangedPayload never carries credential material.
type PasswordChangedPayload struct {
	UserID    int       `json:"user_id"`
	Flow      string    `json:"flow"` // logged_in, by_username
	ChangedAt time.Time `json:"changed_at"`
}
