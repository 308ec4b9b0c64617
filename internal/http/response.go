package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tagmark/internal/service"
)

// ResponseKey is the stable discriminator carried by every response body.
type ResponseKey string

const (
	KeySuccess             ResponseKey = "SUCCESS"
	KeyInternalServerError ResponseKey = "INTERNAL_SERVER_ERROR"
	KeyUnauthenticated     ResponseKey = "UNAUTHENTICATED"
	KeyBadRequest          ResponseKey = "BAD_REQUEST"
	KeyEmail               ResponseKey = "EMAIL"
	KeyPassword            ResponseKey = "PASSWORD"
	KeyName                ResponseKey = "NAME"
	KeyInvalidURL          ResponseKey = "INVALID_URL"
	KeyInvalidID           ResponseKey = "INVALID_ID"
	KeyDuplicatePost       ResponseKey = "DUPLICATE_POST"
	KeyPostNotFound        ResponseKey = "POST_NOT_FOUND"
	KeyInvalidPost         ResponseKey = "INVALID_POST"
	KeyCredentials         ResponseKey = "CREDENTIALS"
	KeyUserNotFound        ResponseKey = "USER_NOT_FOUND"
	KeyUserAlreadyExists   ResponseKey = "USER_ALREADY_EXISTS"
)

var messages = map[ResponseKey]string{
	KeySuccess:             "ok",
	KeyInternalServerError: "internal server error",
	KeyUnauthenticated:     "not authenticated",
	KeyBadRequest:          "malformed request body",
	KeyEmail:               "invalid email",
	KeyPassword:            "password must be 8-72 bytes with a letter and a digit",
	KeyName:                "name must be 1-64 characters",
	KeyInvalidURL:          "url is not a tweet link",
	KeyInvalidID:           "invalid id",
	KeyDuplicatePost:       "post already bookmarked",
	KeyPostNotFound:        "post not found",
	KeyInvalidPost:         "invalid post",
	KeyCredentials:         "invalid credentials",
	KeyUserNotFound:        "user not found",
	KeyUserAlreadyExists:   "user already exists",
}

type envelope struct {
	Key     ResponseKey `json:"key"`
	Message string      `json:"message"`
	Data    any         `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, key ResponseKey, data any) {
	c.JSON(status, envelope{Key: key, Message: messages[key], Data: data})
}

// errorResponse maps a service error onto a status and response key.
func errorResponse(err error) (int, ResponseKey) {
	if verr, ok := service.IsValidation(err); ok {
		switch verr.Field {
		case "email":
			return http.StatusBadRequest, KeyEmail
		case "password":
			return http.StatusBadRequest, KeyPassword
		case "name":
			return http.StatusBadRequest, KeyName
		case "url":
			return http.StatusBadRequest, KeyInvalidURL
		}
		return http.StatusBadRequest, KeyBadRequest
	}

	switch {
	case errors.Is(err, service.ErrConfiguration):
		return http.StatusInternalServerError, KeyInternalServerError
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, KeyUnauthenticated
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, KeyCredentials
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, KeyUserNotFound
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusBadRequest, KeyUserAlreadyExists
	case errors.Is(err, service.ErrDuplicatePost):
		return http.StatusBadRequest, KeyDuplicatePost
	case errors.Is(err, service.ErrPostNotFound):
		return http.StatusBadRequest, KeyPostNotFound
	case errors.Is(err, service.ErrInvalidPost):
		return http.StatusBadRequest, KeyInvalidPost
	}
	return http.StatusInternalServerError, KeyInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, key := errorResponse(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respond(c, status, key, nil)
}
