package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vmestego-backend/internal/apperr"
)

// -----------------------------
// Comments
// -----------------------------

type commentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type ratingRequest struct {
	IsPositive *bool `json:"isPositive" binding:"required"`
}

func (h *Handler) ListComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	comments, err := h.Comments.List(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *Handler) PostComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body commentRequest
	if !bindJSON(c, &body) {
		return
	}

	comment, err := h.Comments.Post(c.Request.Context(), caller(c), id, body.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) RateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body ratingRequest
	if !bindJSON(c, &body) {
		return
	}

	comment, err := h.Comments.Rate(c.Request.Context(), caller(c), id, *body.IsPositive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Comments.Delete(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------
// Event invitations
// -----------------------------

type inviteRequest struct {
	EventID    uint `json:"eventId" binding:"required"`
	ReceiverID uint `json:"receiverId" binding:"required"`
}

func (h *Handler) InviteToEvent(c *gin.Context) {
	var body inviteRequest
	if !bindJSON(c, &body) {
		return
	}

	inv, err := h.Invitations.Invite(c.Request.Context(), caller(c), body.EventID, body.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) PendingInvitations(c *gin.Context) {
	list, err := h.Invitations.Pending(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SentInvitations(c *gin.Context) {
	list, err := h.Invitations.Sent(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AcceptInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Invitations.Accept(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted"})
}

func (h *Handler) RejectInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Invitations.Reject(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation rejected"})
}

func (h *Handler) RevokeInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Invitations.Revoke(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------
// Friends
// -----------------------------

type friendRequestBody struct {
	ReceiverID uint `json:"receiverId" binding:"required"`
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	var body friendRequestBody
	if !bindJSON(c, &body) {
		return
	}

	req, err := h.Friends.Send(c.Request.Context(), caller(c).UserID, body.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Friends.Accept(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request accepted"})
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Friends.Reject(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request rejected"})
}

func (h *Handler) RevokeFriendRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Friends.Revoke(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PendingFriendRequests(c *gin.Context) {
	list, err := h.Friends.Pending(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SentFriendRequests(c *gin.Context) {
	list, err := h.Friends.Sent(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) FriendRequestWith(c *gin.Context) {
	id, ok := paramID(c, "userId")
	if !ok {
		return
	}

	req, err := h.Friends.Between(c.Request.Context(), caller(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) ListFriends(c *gin.Context) {
	list, err := h.Friends.Friends(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	id, ok := paramID(c, "friendId")
	if !ok {
		return
	}
	if err := h.Friends.Remove(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------
// Notifications
// -----------------------------

func (h *Handler) ListNotifications(c *gin.Context) {
	var isRead *bool
	if raw, ok := c.GetQuery("isRead"); ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperr.Validation("validation failed",
				apperr.FieldError{Field: "isRead", Message: "must be true or false"}))
			return
		}
		isRead = &v
	}

	list, err := h.Notifications.List(c.Request.Context(), caller(c).UserID, isRead)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Notifications.MarkAsRead(c.Request.Context(), caller(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.Notifications.MarkAllAsRead(c.Request.Context(), caller(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
