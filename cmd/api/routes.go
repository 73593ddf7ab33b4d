package main

import (
	"log/slog"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/httpapi"
	"inspection-backoffice/internal/metrics"
	"inspection-backoffice/internal/ratelimit"
	"inspection-backoffice/internal/rbac"
	"inspection-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// routeDeps is everything the router needs. Built in main, or from in-memory
// stores in tests.
type routeDeps struct {
	log       *slog.Logger
	handlers  httpapi.Handlers
	validator *auth.Validator
	limiter   ratelimit.Limiter
	metrics   *metrics.Metrics

	// trustedProxies may set X-Forwarded-For. Nil trusts no one.
	trustedProxies []string
}

// newRouter wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
//
// Order matters: rate limiting runs before session validation so a flood of
// bad tokens is throttled before it reaches the credential store. Login and
// register draw only from the auth budget; everything else under /api draws
// from the general one.
func newRouter(d routeDeps) (*gin.Engine, error) {
	r := gin.New()
	// The limiter keys on ClientIP, so only listed proxies may rewrite it.
	if err := r.SetTrustedProxies(d.trustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(d.log))
	r.Use(d.metrics.Instrument())

	limitOpts := ratelimit.Options{
		OnReject: func(c ratelimit.Class) { d.metrics.RateLimited(string(c)) },
		OnError:  func(c ratelimit.Class, _ error) { d.metrics.RateLimiterError(string(c)) },
	}
	generalLimit := ratelimit.Admit(d.limiter, ratelimit.ClassGeneral, limitOpts)
	authLimit := ratelimit.Admit(d.limiter, ratelimit.ClassAuth, limitOpts)

	h := d.handlers

	// public
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	api := r.Group("/api")

	// AUTH routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authLimit, h.Login)
		authGroup.POST("/register", authLimit, h.Register)

		// Reachable while first login is pending.
		session := authGroup.Group("")
		session.Use(generalLimit, auth.RequireSession(d.validator))
		session.GET("/me", h.Me)
		session.POST("/first-login", h.CompleteFirstLogin)
		session.PUT("/password", auth.RequireCompletedFirstLogin(), h.ChangePassword)
	}

	// Everything below needs a session with first login completed.
	protected := api.Group("")
	protected.Use(generalLimit, auth.RequireSession(d.validator), auth.RequireCompletedFirstLogin())

	// USERS routes
	users := protected.Group("/users")
	{
		users.GET("", rbac.Require(rbac.ResourceUser, rbac.ActionRead), h.ListUsers)
		users.GET("/:id", rbac.Require(rbac.ResourceUser, rbac.ActionRead), h.GetUser)
		users.POST("", rbac.Require(rbac.ResourceUser, rbac.ActionWrite), h.CreateUser)
		users.PUT("/:id", rbac.Require(rbac.ResourceUser, rbac.ActionWrite), h.UpdateUser)
		users.POST("/:id/reprovision", rbac.Require(rbac.ResourceUser, rbac.ActionWrite), h.ReprovisionUser)
		users.DELETE("/:id", rbac.Require(rbac.ResourceUser, rbac.ActionDelete), h.DeactivateUser)
	}

	// PROPERTIES routes
	properties := protected.Group("/properties")
	{
		properties.GET("", rbac.Require(rbac.ResourceProperty, rbac.ActionRead), h.ListProperties)
		properties.POST("", rbac.Require(rbac.ResourceProperty, rbac.ActionWrite), h.CreateProperty)
		properties.GET("/:id", rbac.Require(rbac.ResourceProperty, rbac.ActionRead), h.GetProperty)
		properties.PUT("/:id", rbac.Require(rbac.ResourceProperty, rbac.ActionWrite), h.UpdateProperty)
		properties.DELETE("/:id", rbac.Require(rbac.ResourceProperty, rbac.ActionDelete), h.DeleteProperty)

		properties.GET("/:id/inspections", rbac.Require(rbac.ResourceInspection, rbac.ActionRead), h.ListPropertyInspections)
		properties.POST("/:id/inspections", rbac.Require(rbac.ResourceInspection, rbac.ActionWrite), h.CreateInspection)
		properties.GET("/:id/calls", rbac.Require(rbac.ResourceCall, rbac.ActionRead), h.ListPropertyCalls)
		properties.POST("/:id/calls", rbac.Require(rbac.ResourceCall, rbac.ActionWrite), h.CreateCall)
		properties.GET("/:id/contacts", rbac.Require(rbac.ResourceContact, rbac.ActionRead), h.ListPropertyContacts)
		properties.POST("/:id/contacts", rbac.Require(rbac.ResourceContact, rbac.ActionWrite), h.CreateContact)
	}

	// INSPECTIONS routes
	inspections := protected.Group("/inspections")
	{
		inspections.GET("", rbac.Require(rbac.ResourceInspection, rbac.ActionRead), h.ListInspections)
		inspections.POST("", rbac.Require(rbac.ResourceInspection, rbac.ActionWrite), h.CreateInspection)
		inspections.GET("/:id", rbac.Require(rbac.ResourceInspection, rbac.ActionRead), h.GetInspection)
		inspections.PUT("/:id", rbac.Require(rbac.ResourceInspection, rbac.ActionWrite), h.UpdateInspection)
		inspections.DELETE("/:id", rbac.Require(rbac.ResourceInspection, rbac.ActionDelete), h.DeleteInspection)

		inspections.GET("/:id/calls", rbac.Require(rbac.ResourceCall, rbac.ActionRead), h.ListInspectionCalls)
		inspections.POST("/:id/calls", rbac.Require(rbac.ResourceCall, rbac.ActionWrite), h.CreateInspectionCall)
	}

	// CALLS routes
	calls := protected.Group("/calls")
	{
		calls.GET("", rbac.Require(rbac.ResourceCall, rbac.ActionRead), h.ListCalls)
		calls.POST("", rbac.Require(rbac.ResourceCall, rbac.ActionWrite), h.CreateCall)
		calls.GET("/:id", rbac.Require(rbac.ResourceCall, rbac.ActionRead), h.GetCall)
		calls.PUT("/:id", rbac.Require(rbac.ResourceCall, rbac.ActionWrite), h.UpdateCall)
		calls.DELETE("/:id", rbac.Require(rbac.ResourceCall, rbac.ActionDelete), h.DeleteCall)
	}

	// CONTACTS routes (created under their property)
	contacts := protected.Group("/contacts")
	{
		contacts.GET("/:id", rbac.Require(rbac.ResourceContact, rbac.ActionRead), h.GetContact)
		contacts.PUT("/:id", rbac.Require(rbac.ResourceContact, rbac.ActionWrite), h.UpdateContact)
		contacts.DELETE("/:id", rbac.Require(rbac.ResourceContact, rbac.ActionDelete), h.DeleteContact)
	}

	return r, nil
}
