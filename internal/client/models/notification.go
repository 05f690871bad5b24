package models

import "encoding/json"

// Notification types. They double as toast levels.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is one record of the notification feed.
type Notification struct {
	ID        string         `json:"id"`
	User      string         `json:"user"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"notification_type"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *string        `json:"read_at,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// UnmarshalJSON accepts the type under either "notification_type" or "type";
// push payloads have used both.
func (n *Notification) UnmarshalJSON(b []byte) error {
	type plain Notification
	aux := struct {
		*plain
		AltType string `json:"type"`
	}{plain: (*plain)(n)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if n.Type == "" {
		n.Type = aux.AltType
	}
	return nil
}

// Pagination describes one page of a list endpoint.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NotificationPage is the body of GET /notifications.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Pagination    Pagination     `json:"pagination"`
}

// UnreadCount is the body of GET /notifications/unread-count.
type UnreadCount struct {
	UnreadCount int `json:"unread_count"`
}
