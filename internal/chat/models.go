package chat

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ChatType string

const (
	ChatTypeAI    ChatType = "ai"
	ChatTypeAdmin ChatType = "admin"
)

func (t ChatType) Valid() bool { return t == ChatTypeAI || t == ChatTypeAdmin }

type SessionStatus string

const (
	StatusActive      SessionStatus = "active"
	StatusAdminActive SessionStatus = "admin_active"
	StatusEnded       SessionStatus = "ended"
)

type Session struct {
	ID         string        `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ChatType   ChatType      `gorm:"type:varchar(16);not null;<-:create" json:"chatType"`
	Status     SessionStatus `gorm:"type:varchar(16);not null;index:idx_chat_sessions_status_updated,priority:1" json:"status"`
	CustomerID *string       `gorm:"type:varchar(64);index" json:"customerId,omitempty"`
	AdminID    *string       `gorm:"type:varchar(64);index" json:"adminId,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `gorm:"index:idx_chat_sessions_status_updated,priority:2" json:"updatedAt"`
}

func (Session) TableName() string { return "chat_sessions" }

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAI       Sender = "ai"
	SenderAdmin    Sender = "admin"
)

func (s Sender) Valid() bool {
	return s == SenderCustomer || s == SenderAI || s == SenderAdmin
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageImage || t == MessageSystem
}

// Message rows are append-only. Ordering within a session is created_at, then id.
type Message struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string         `gorm:"type:varchar(26);not null;index:idx_chat_msg_session_created,priority:1" json:"sessionId"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	Sender      Sender         `gorm:"type:varchar(16);not null" json:"sender"`
	MessageType MessageType    `gorm:"type:varchar(16);not null;default:text" json:"messageType"`
	ImageURL    *string        `gorm:"type:varchar(512)" json:"imageUrl,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index:idx_chat_msg_session_created,priority:2" json:"createdAt"`

	Session *Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string { return "chat_messages" }

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderRejected  OrderStatus = "rejected"
	OrderCompleted OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderRejected, OrderCompleted:
		return true
	}
	return false
}

type SpecialOrder struct {
	ID                string              `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ChatSessionID     *string             `gorm:"type:varchar(26);index" json:"chatSessionId,omitempty"`
	CustomerEmail     string              `gorm:"type:varchar(255);not null" json:"customerEmail"`
	CustomerName      *string             `gorm:"type:varchar(255)" json:"customerName,omitempty"`
	CustomerPhone     *string             `gorm:"type:varchar(64)" json:"customerPhone,omitempty"`
	RequestDetails    string              `gorm:"type:text;not null" json:"requestDetails"`
	RequestedQuantity *int                `json:"requestedQuantity,omitempty"`
	RequestedStrain   *string             `gorm:"type:varchar(255)" json:"requestedStrain,omitempty"`
	RequestedDate     *string             `gorm:"type:varchar(32)" json:"requestedDate,omitempty"`
	Status            OrderStatus         `gorm:"type:varchar(16);index;not null" json:"status"`
	AdminNotes        *string             `gorm:"type:text" json:"adminNotes,omitempty"`
	TotalPrice        decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"totalPrice"`
	AdminID           *string             `gorm:"type:varchar(64)" json:"adminId,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func (SpecialOrder) TableName() string { return "special_orders" }
