package parqrapi

import "time"

// User is a public parQR profile
type User struct {
	ID               int64     `json:"id"`
	UserCode         string    `json:"user_code"`
	QRCodeID         string    `json:"qr_code_id"`
	DisplayName      string    `json:"profile_display_name,omitempty"`
	UserTier         string    `json:"user_tier"`
	SignupCountryISO string    `json:"signup_country_iso,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message represents a chat message
type Message struct {
	ID                int64      `json:"id"`
	SenderUserCode    string     `json:"sender_user_code"`
	RecipientUserCode string     `json:"recipient_user_code"`
	Content           string     `json:"message_content"`
	Type              string     `json:"message_type"`
	IsRead            bool       `json:"is_read"`
	CreatedAt         time.Time  `json:"created_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
}

// Conversation is one entry of the chat list
type Conversation struct {
	ParticipantUserCode    string    `json:"participant_user_code"`
	ParticipantDisplayName string    `json:"participant_display_name"`
	LastMessage            Message   `json:"last_message"`
	UnreadCount            int       `json:"unread_count"`
	LastActivity           time.Time `json:"last_activity"`
}

// MoveRequest is a "move your car" request addressed to a user
type MoveRequest struct {
	ID             int64     `json:"id"`
	SenderUserCode string    `json:"sender_user_code"`
	LicensePlate   string    `json:"license_plate"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message types understood by the chat endpoints
const (
	MessageTypeText           = "text"
	MessageTypeMoveCarRequest = "move_car_request"
)

type unreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type previewResponse struct {
	Requests []MoveRequest `json:"requests"`
}

type sendMessageRequest struct {
	RecipientUserCode string `json:"recipient_user_code"`
	Content           string `json:"message_content"`
	Type              string `json:"message_type"`
}

type markReadRequest struct {
	MessageIDs []int64 `json:"message_ids"`
}

type markReadResponse struct {
	MarkedAsRead int `json:"marked_as_read"`
}

type createMoveRequest struct {
	TargetUserCode string `json:"target_user_code"`
	LicensePlate   string `json:"license_plate"`
}
