package models

import "time"

// User represents a registered account.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null;size:30"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Salt         string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:'User'"`
	ImageKey     string    `json:"image_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Event is the core event model. A nil CreatorID marks an externally
// sourced event.
type Event struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	Date           time.Time `json:"date" gorm:"not null"`
	Location       string    `json:"location" gorm:"not null"`
	Description    string    `json:"description" gorm:"not null"`
	AgeRestriction int       `json:"age_restriction" gorm:"not null;default:0"`
	Price          float64   `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	IsPrivate      bool      `json:"is_private" gorm:"not null;index"`
	ExternalID     *int      `json:"external_id"`
	CreatorID      *uint     `json:"creator_id" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Creator     *User             `json:"creator,omitempty" gorm:"foreignKey:CreatorID;constraint:OnDelete:SET NULL"`
	Categories  []Category        `json:"categories,omitempty" gorm:"many2many:event_categories"`
	Images      []EventImage      `json:"images,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Invitations []EventInvitation `json:"-" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// EventCategory is the join model behind Event.Categories.
type EventCategory struct {
	EventID    uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
}

type EventImage struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	EventID    uint   `json:"event_id" gorm:"index;not null"`
	ImageKey   string `json:"image_key" gorm:"uniqueIndex;not null"`
	OrderIndex int    `json:"order_index" gorm:"not null"`
}

// EventParticipation stores a stated status; NotGoing is never stored.
type EventParticipation struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	UserID    uint                `json:"user_id" gorm:"not null;uniqueIndex:idx_participation_user_event"`
	EventID   uint                `json:"event_id" gorm:"not null;uniqueIndex:idx_participation_user_event"`
	Status    ParticipationStatus `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`

	User  *User  `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Event *Event `json:"event,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

type EventInvitation struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	EventID    uint          `json:"event_id" gorm:"index;not null"`
	SenderID   uint          `json:"sender_id" gorm:"index;not null"`
	ReceiverID uint          `json:"receiver_id" gorm:"index;not null"`
	Status     RequestStatus `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	Event    *Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Sender   *User  `json:"sender,omitempty" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	Receiver *User  `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE"`
}

// FriendRequest doubles as the friendship record: Accepted means friends.
type FriendRequest struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	SenderID   uint          `json:"sender_id" gorm:"index;not null"`
	ReceiverID uint          `json:"receiver_id" gorm:"index;not null"`
	Status     RequestStatus `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	Sender   *User `json:"sender,omitempty" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	Receiver *User `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventID   uint      `json:"event_id" gorm:"index;not null"`
	AuthorID  uint      `json:"author_id" gorm:"index;not null"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	Event   *Event          `json:"-" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Author  *User           `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Ratings []CommentRating `json:"ratings,omitempty" gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
}

// CommentRating is one user's +1/-1 vote on a comment.
type CommentRating struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_rating_user_comment"`
	CommentID uint `json:"comment_id" gorm:"not null;uniqueIndex:idx_rating_user_comment"`
	Value     int  `json:"value" gorm:"not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (CommentRating) TableName() string { return "user_comment_ratings" }

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Text      string    `json:"text" gorm:"not null"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
