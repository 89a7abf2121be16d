package services

import (
	"time"

	"vmestego-backend/internal/models"
)

type UserResponse struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	ImageURL string      `json:"imageUrl"`
}

type EventResponse struct {
	ID              uint                        `json:"id"`
	Title           string                      `json:"title"`
	Date            time.Time                   `json:"date"`
	Location        string                      `json:"location"`
	Description     string                      `json:"description"`
	AgeRestriction  int                         `json:"ageRestriction"`
	Price           float64                     `json:"price"`
	IsPrivate       bool                        `json:"isPrivate"`
	ExternalID      *int                        `json:"externalId"`
	CreatorID       *uint                       `json:"creatorId"`
	CreatorUsername string                      `json:"creatorUsername"`
	Categories      []string                    `json:"categories"`
	Images          []string                    `json:"images"`
	EventStatus     *models.ParticipationStatus `json:"eventStatus,omitempty"`
}

type CommentResponse struct {
	ID             uint      `json:"id"`
	AuthorID       uint      `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	Text           string    `json:"text"`
	Rating         int       `json:"rating"`
	UserRating     int       `json:"userRating"`
	CreatedAt      time.Time `json:"createdAt"`
}

type FriendResponse struct {
	RequestID uint   `json:"requestId"`
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	ImageURL  string `json:"imageUrl"`
}

type FriendRequestResponse struct {
	ID        uint                 `json:"id"`
	Sender    UserResponse         `json:"sender"`
	Receiver  UserResponse         `json:"receiver"`
	CreatedAt time.Time            `json:"createdAt"`
	Status    models.RequestStatus `json:"status"`
}

type InvitationResponse struct {
	ID       uint                 `json:"id"`
	Event    EventResponse        `json:"event"`
	Sender   UserResponse         `json:"sender"`
	Receiver UserResponse         `json:"receiver"`
	Status   models.RequestStatus `json:"status"`
}

type NotificationResponse struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

type FriendEventResponse struct {
	Event   EventResponse  `json:"event"`
	Friends []UserResponse `json:"friends"`
}

type FriendEventStatusResponse struct {
	Friend      UserResponse                `json:"friend"`
	EventStatus *models.ParticipationStatus `json:"eventStatus"`
}

type UploadInfo struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

type ImageResponse struct {
	ID         uint   `json:"id"`
	URL        string `json:"url"`
	OrderIndex int    `json:"orderIndex"`
}

type PagedResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
}

func toUserResponse(u *models.User, store ObjectStore) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		ImageURL: store.URL(u.ImageKey),
	}
}

// toEventResponse expects Creator, Categories and Images to be preloaded,
// with images already in display order.
func toEventResponse(ev *models.Event, store ObjectStore, status *models.ParticipationStatus) EventResponse {
	resp := EventResponse{
		ID:              ev.ID,
		Title:           ev.Title,
		Date:            ev.Date,
		Location:        ev.Location,
		Description:     ev.Description,
		AgeRestriction:  ev.AgeRestriction,
		Price:           ev.Price,
		IsPrivate:       ev.IsPrivate,
		ExternalID:      ev.ExternalID,
		CreatorID:       ev.CreatorID,
		CreatorUsername: "Unknown",
		Categories:      make([]string, 0, len(ev.Categories)),
		Images:          make([]string, 0, len(ev.Images)),
		EventStatus:     status,
	}
	if ev.Creator != nil {
		resp.CreatorUsername = ev.Creator.Username
	}
	for _, c := range ev.Categories {
		resp.Categories = append(resp.Categories, c.Name)
	}
	for _, img := range ev.Images {
		resp.Images = append(resp.Images, store.URL(img.ImageKey))
	}
	return resp
}
