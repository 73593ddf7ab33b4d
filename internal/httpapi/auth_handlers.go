package httpapi

import (
	"net/http"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/pkg/httpx"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.Credentials.Login(c.Request.Context(), req.Email, req.Password, requestInfo(c))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, sess)
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Register creates a USER account. Role is never taken from the body.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.Credentials.Register(c.Request.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, requestInfo(c))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, sess)
}

func (h Handlers) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	u, err := h.Credentials.Me(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h Handlers) ChangePassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.Credentials.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword, requestInfo(c))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, sess)
}

type firstLoginRequest struct {
	CurrentPassword string  `json:"currentPassword" binding:"required"`
	NewPassword     string  `json:"newPassword" binding:"required"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Phone           *string `json:"phone"`
}

func (h Handlers) CompleteFirstLogin(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req firstLoginRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.Credentials.CompleteFirstLogin(c.Request.Context(), p, auth.FirstLoginInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
	}, requestInfo(c))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, sess)
}
