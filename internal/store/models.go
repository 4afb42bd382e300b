package store

import "time"

// Query outcome statuses stored in query_history.status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Action types written to app_user_logs.
const (
	ActionLogin        = "LOGIN"
	ActionExecuteQuery = "EXECUTE_QUERY"
	ActionQueryError   = "QUERY_ERROR"
)

// User is an application user.
type User struct {
	ID        int64     `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConnectionProfile is a stored remote database connection. The encrypted
// secret never leaves the process in serialised form.
type ConnectionProfile struct {
	ID              int64   `json:"connectionId"`
	UserID          int64   `json:"userId"`
	FolderID        *int64  `json:"folderId,omitempty"`
	Name            string  `json:"connectionName"`
	Driver          string  `json:"driver"`
	Host            string  `json:"host"`
	Port            *int    `json:"port,omitempty"`
	Database        string  `json:"dbName"`
	Username        string  `json:"dbUser"`
	SecretEncrypted string  `json:"-"`
	SSLMode         *string `json:"sslMode,omitempty"`
}

type Tag struct {
	ID     int64  `json:"tagId"`
	UserID int64  `json:"userId"`
	Name   string `json:"tagName"`
}

type PinnedQuery struct {
	ID           int64     `json:"pinnedQueryId"`
	ConnectionID int64     `json:"connectionId"`
	Name         string    `json:"queryName"`
	Text         string    `json:"queryText"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HistoryEntry records one attempted statement.
type HistoryEntry struct {
	ID              int64     `json:"historyId"`
	ConnectionID    int64     `json:"connectionId"`
	QueryText       string    `json:"queryText"`
	Status          string    `json:"status"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	ErrorMessage    *string   `json:"errorMessage,omitempty"`
	ExecutionID     string    `json:"executionId"`
	ExecutedAt      time.Time `json:"executedAt"`
}

type ActionLog struct {
	ID         int64     `json:"logId"`
	UserID     int64     `json:"userId"`
	ActionType string    `json:"actionType"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// UserStatistics summarises a user's activity.
type UserStatistics struct {
	TotalConnections int64      `json:"totalConnections"`
	TotalQueries     int64      `json:"totalQueries"`
	SuccessQueries   int64      `json:"successQueries"`
	ErrorQueries     int64      `json:"errorQueries"`
	PinnedQueries    int64      `json:"pinnedQueries"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	UserCreatedAt    *time.Time `json:"userCreatedAt,omitempty"`
}

// ConnectionFilter narrows ListConnections. Zero fields add no constraint.
type ConnectionFilter struct {
	UserID   int64
	TagIDs   []int64
	Search   string
	SortDesc *bool
}

// PinnedFilter narrows ListPinnedQueries.
type PinnedFilter struct {
	UserID   int64
	Search   string
	SortDesc *bool
}

// HistoryFilter narrows ListQueryHistory. Statuses containing "all" (or only
// empty strings) add no constraint. From and To are inclusive. Limit and
// Offset are always bound as given.
type HistoryFilter struct {
	UserID   int64
	Search   string
	Statuses []string
	From     *time.Time
	To       *time.Time
	SortDesc *bool
	Limit    int
	Offset   int
}
