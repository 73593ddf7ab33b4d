package httpapi

import (
	"net/http"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/pkg/httpx"

	"github.com/gin-gonic/gin"
)

type provisionedUser struct {
	User identity.Identity `json:"user"`
	// TemporaryPassword is shown once and never stored in plaintext.
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

func (h Handlers) ListUsers(c *gin.Context) {
	users, err := h.Accounts.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, users)
}

func (h Handlers) GetUser(c *gin.Context) {
	u, err := h.Accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, u)
}

type createUserRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Role             string `json:"role" binding:"required"`
	Password         string `json:"password"`
	GeneratePassword bool   `json:"generatePassword"`
	EmployeeID       string `json:"employeeId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Phone            string `json:"phone"`
}

func (h Handlers) CreateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createUserRequest
	if !bind(c, &req) {
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	u, temp, err := h.Accounts.CreateUser(c.Request.Context(), p, c.ClientIP(), auth.CreateUserInput{
		Email:            req.Email,
		Role:             role,
		Password:         req.Password,
		GeneratePassword: req.GeneratePassword,
		EmployeeID:       req.EmployeeID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, provisionedUser{User: u, TemporaryPassword: temp})
}

type updateUserRequest struct {
	Email      *string `json:"email" binding:"omitempty,email"`
	Role       *string `json:"role"`
	Active     *bool   `json:"active"`
	EmployeeID *string `json:"employeeId"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Phone      *string `json:"phone"`
}

func (h Handlers) UpdateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bind(c, &req) {
		return
	}
	in := auth.UpdateUserInput{
		Email:      req.Email,
		Active:     req.Active,
		EmployeeID: req.EmployeeID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
	}
	if req.Role != nil {
		role, err := identity.ParseRole(*req.Role)
		if err != nil {
			fail(c, err)
			return
		}
		in.Role = &role
	}
	u, err := h.Accounts.UpdateUser(c.Request.Context(), p, c.ClientIP(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, u)
}

// DeactivateUser backs DELETE /api/users/:id. Accounts are never hard-deleted
// because audit events and records reference them.
func (h Handlers) DeactivateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	inactive := false
	u, err := h.Accounts.UpdateUser(c.Request.Context(), p, c.ClientIP(), c.Param("id"), auth.UpdateUserInput{Active: &inactive})
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, u)
}

func (h Handlers) ReprovisionUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	u, temp, err := h.Accounts.Reprovision(c.Request.Context(), p, c.ClientIP(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, provisionedUser{User: u, TemporaryPassword: temp})
}
