package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/models"
	"vmestego-backend/internal/services"
)

// -----------------------------
// Events
// -----------------------------

type eventRequest struct {
	Title          string    `json:"title" binding:"required,max=200"`
	Date           time.Time `json:"date"`
	Location       string    `json:"location" binding:"required,max=200"`
	Description    string    `json:"description"`
	AgeRestriction int       `json:"ageRestriction" binding:"gte=0,lte=100"`
	Price          float64   `json:"price" binding:"gte=0"`
	IsPrivate      bool      `json:"isPrivate"`
	ExternalID     *int      `json:"externalId"`
	CategoryIDs    []uint    `json:"categoryIds"`
	CategoryNames  []string  `json:"categoryNames" binding:"omitempty,dive,max=50"`
	ImageKeys      []string  `json:"imageKeys" binding:"omitempty,dive,required"`
}

func (r eventRequest) input() (services.EventInput, error) {
	if r.Date.IsZero() {
		return services.EventInput{}, apperr.Validation("validation failed",
			apperr.FieldError{Field: "date", Message: "is required"})
	}
	return services.EventInput{
		Title:          r.Title,
		Date:           r.Date.UTC(),
		Location:       r.Location,
		Description:    r.Description,
		AgeRestriction: r.AgeRestriction,
		Price:          r.Price,
		IsPrivate:      r.IsPrivate,
		ExternalID:     r.ExternalID,
		CategoryIDs:    r.CategoryIDs,
		CategoryNames:  r.CategoryNames,
		ImageKeys:      r.ImageKeys,
	}, nil
}

type feedQuery struct {
	Q           string `form:"q"`
	CategoryIDs []uint `form:"categoryIds"`
	Offset      int    `form:"offset" binding:"gte=0"`
	Limit       int    `form:"limit" binding:"gte=0,lte=100"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=WantToGo Going NotGoing"`
}

// ListEvents serves both the public listing and the participation-scoped
// listing (userId + eventStatus). Authentication is optional.
func (h *Handler) ListEvents(c *gin.Context) {
	var q services.ListQuery

	if raw, ok := c.GetQuery("userId"); ok && raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || id == 0 {
			respondError(c, apperr.Validation("validation failed",
				apperr.FieldError{Field: "userId", Message: "must be a positive integer"}))
			return
		}
		uid := uint(id)
		q.UserID = &uid
	}
	if raw, ok := c.GetQuery("eventStatus"); ok && raw != "" {
		status, err := models.ParseParticipationStatus(raw)
		if err != nil {
			respondError(c, apperr.Validation("validation failed",
				apperr.FieldError{Field: "eventStatus", Message: "must be one of: WantToGo Going NotGoing"}))
			return
		}
		q.Status = &status
	}

	var who *auth.Identity
	if id, ok := auth.FromContext(c); ok {
		who = &id
	}

	events, err := h.Events.List(c.Request.Context(), who, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ev, err := h.Events.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var body eventRequest
	if !bindJSON(c, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		respondError(c, err)
		return
	}

	ev, err := h.Events.Create(c.Request.Context(), caller(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body eventRequest
	if !bindJSON(c, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		respondError(c, err)
		return
	}

	ev, err := h.Events.Update(c.Request.Context(), caller(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Events.Delete(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangeEventStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body statusRequest
	if !bindJSON(c, &body) {
		return
	}
	status, err := models.ParseParticipationStatus(body.Status)
	if err != nil {
		respondError(c, validationError(err))
		return
	}

	if err := h.Events.ChangeStatus(c.Request.Context(), caller(c), id, status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.Events.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// eventFeed is the shape of the owner-scoped event queries.
type eventFeed func(ctx context.Context, who auth.Identity, f services.EventFilter) ([]services.EventResponse, error)

// feed adapts one of the owner-scoped event queries to a handler.
func feed(query eventFeed) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q feedQuery
		if !bindQuery(c, &q) {
			return
		}

		events, err := query(c.Request.Context(), caller(c), services.EventFilter{
			Query:       q.Q,
			CategoryIDs: q.CategoryIDs,
			Offset:      q.Offset,
			Limit:       q.Limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func (h *Handler) FriendsEvents(c *gin.Context) {
	events, err := h.Events.FriendsEvents(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) EventFriendStatuses(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	statuses, err := h.Events.FriendStatuses(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// -----------------------------
// Event images
// -----------------------------

func (h *Handler) EventImageUploadURL(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	info, err := h.Events.ImageUploadURL(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) ConfirmEventImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body confirmImageRequest
	if !bindJSON(c, &body) {
		return
	}

	img, err := h.Events.ConfirmImage(c.Request.Context(), caller(c), id, body.ImageKey, body.OrderIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) DeleteEventImage(c *gin.Context) {
	id, ok := paramID(c, "imageId")
	if !ok {
		return
	}

	if err := h.Events.DeleteImage(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
