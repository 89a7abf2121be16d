// Package handlers exposes the services over HTTP with gin.
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"vmestego-backend/internal/apperr"
	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/services"
)

// Handler holds the services behind every route.
type Handler struct {
	Users         *services.UserService
	Events        *services.EventService
	Friends       *services.FriendService
	Invitations   *services.InvitationService
	Comments      *services.CommentService
	Notifications *services.NotificationService
}

// -----------------------------
// Helper functions
// -----------------------------

func jsonError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// respondError maps domain errors to status codes. Anything unexpected is
// logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		jsonError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message, "fields": e.Fields})
	case apperr.KindNotFound:
		jsonError(c, http.StatusNotFound, e.Message)
	case apperr.KindUnauthorized:
		jsonError(c, http.StatusUnauthorized, e.Message)
	case apperr.KindForbidden:
		jsonError(c, http.StatusForbidden, e.Message)
	case apperr.KindConflict:
		jsonError(c, http.StatusConflict, e.Message)
	default:
		log.Printf("❌ %s %s: unmapped error kind %s: %v", c.Request.Method, c.Request.URL.Path, e.Kind, err)
		jsonError(c, http.StatusInternalServerError, "internal server error")
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json/form name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request",
			apperr.FieldError{Field: "body", Message: err.Error()})
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperr.Validation("validation failed", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, validationError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		respondError(c, validationError(err))
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("invalid path parameter",
			apperr.FieldError{Field: name, Message: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// caller returns the identity set by auth.Required.
func caller(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c)
	return id
}
