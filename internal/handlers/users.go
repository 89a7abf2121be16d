package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vmestego-backend/internal/services"
)

// -----------------------------
// Auth
// -----------------------------

type registerRequest struct {
	Username string `json:"username" binding:"required,max=30"`
	Password string `json:"password" binding:"required"`
	ImageKey string `json:"imageKey"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var body registerRequest
	if !bindJSON(c, &body) {
		return
	}

	token, err := h.Users.Register(c.Request.Context(), services.RegisterInput{
		Username: body.Username,
		Password: body.Password,
		ImageKey: body.ImageKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if !bindJSON(c, &body) {
		return
	}

	token, err := h.Users.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// -----------------------------
// Users
// -----------------------------

type updateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=30"`
	Password *string `json:"password" binding:"omitempty,min=1"`
	ImageKey *string `json:"imageKey"`
}

type searchUsersQuery struct {
	Username string `form:"username"`
	Page     int    `form:"page" binding:"gte=0"`
	PageSize int    `form:"pageSize" binding:"gte=0,lte=100"`
}

type confirmImageRequest struct {
	ImageKey   string `json:"imageKey" binding:"required"`
	OrderIndex int    `json:"orderIndex"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	var q searchUsersQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.Users.Search(c.Request.Context(), caller(c).UserID, q.Username, q.Page, q.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body updateUserRequest
	if !bindJSON(c, &body) {
		return
	}

	user, err := h.Users.Update(c.Request.Context(), caller(c), id, services.UpdateUserInput{
		Username: body.Username,
		Password: body.Password,
		ImageKey: body.ImageKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Users.Delete(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ProfileImageUploadURL(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	info, err := h.Users.ProfileUploadURL(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) ConfirmProfileImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body confirmImageRequest
	if !bindJSON(c, &body) {
		return
	}

	user, err := h.Users.ConfirmProfileImage(c.Request.Context(), caller(c), id, body.ImageKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
