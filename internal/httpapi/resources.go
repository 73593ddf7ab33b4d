package httpapi

import (
	"net/http"
	"time"

	"inspection-backoffice/internal/records"
	"inspection-backoffice/pkg/httpx"

	"github.com/gin-gonic/gin"
)

// Row scope and ownership are enforced in records.Service. Handlers only
// translate between JSON and service calls.

/* ===================== PROPERTIES ===================== */

type propertyRequest struct {
	Address      string `json:"address" binding:"required"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	PropertyType string `json:"propertyType"`
	Notes        string `json:"notes"`
}

func (h Handlers) ListProperties(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListProperties(c.Request.Context(), p)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) GetProperty(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.GetProperty(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) CreateProperty(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req propertyRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Records.CreateProperty(c.Request.Context(), p, records.Property{
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		PropertyType: req.PropertyType,
		Notes:        req.Notes,
	})
	respond(c, http.StatusCreated, out, err)
}

func (h Handlers) UpdateProperty(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var ch records.PropertyChanges
	if !bind(c, &ch) {
		return
	}
	out, err := h.Records.UpdateProperty(c.Request.Context(), p, c.Param("id"), ch)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) DeleteProperty(c *gin.Context) {
	err := h.Records.DeleteProperty(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, gin.H{"deleted": true}, err)
}

/* ===================== INSPECTIONS ===================== */

type inspectionRequest struct {
	PropertyID  string                   `json:"propertyId"`
	InspectorID string                   `json:"inspectorId"`
	Status      records.InspectionStatus `json:"status"`
	ScheduledAt *time.Time               `json:"scheduledAt"`
	Findings    string                   `json:"findings"`
}

func (h Handlers) ListInspections(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListInspections(c.Request.Context(), p)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) ListPropertyInspections(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListPropertyInspections(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) GetInspection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.GetInspection(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

// CreateInspection serves both POST /inspections and POST /properties/:id/inspections.
func (h Handlers) CreateInspection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req inspectionRequest
	if !bind(c, &req) {
		return
	}
	if id := c.Param("id"); id != "" {
		req.PropertyID = id
	}
	if req.PropertyID == "" {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "propertyId is required.")
		return
	}
	out, err := h.Records.CreateInspection(c.Request.Context(), p, records.Inspection{
		PropertyID:  req.PropertyID,
		InspectorID: req.InspectorID,
		Status:      req.Status,
		ScheduledAt: req.ScheduledAt,
		Findings:    req.Findings,
	})
	respond(c, http.StatusCreated, out, err)
}

func (h Handlers) UpdateInspection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var ch records.InspectionChanges
	if !bind(c, &ch) {
		return
	}
	out, err := h.Records.UpdateInspection(c.Request.Context(), p, c.Param("id"), ch)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) DeleteInspection(c *gin.Context) {
	err := h.Records.DeleteInspection(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, gin.H{"deleted": true}, err)
}

/* ===================== CALLS ===================== */

type callRequest struct {
	PropertyID   string     `json:"propertyId"`
	InspectionID *string    `json:"inspectionId"`
	Outcome      string     `json:"outcome"`
	Notes        string     `json:"notes"`
	CalledAt     *time.Time `json:"calledAt"`
}

func (h Handlers) ListCalls(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListCalls(c.Request.Context(), p)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) ListPropertyCalls(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListPropertyCalls(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) ListInspectionCalls(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListInspectionCalls(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) GetCall(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.GetCall(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) createCall(c *gin.Context, fromInspection bool) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req callRequest
	if !bind(c, &req) {
		return
	}
	if fromInspection {
		insp, err := h.Records.GetInspection(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		req.PropertyID = insp.PropertyID
		req.InspectionID = &insp.ID
	} else if id := c.Param("id"); id != "" {
		req.PropertyID = id
	}
	if req.PropertyID == "" {
		httpx.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "propertyId is required.")
		return
	}
	call := records.Call{
		PropertyID:   req.PropertyID,
		InspectionID: req.InspectionID,
		Outcome:      req.Outcome,
		Notes:        req.Notes,
	}
	if req.CalledAt != nil {
		call.CalledAt = *req.CalledAt
	}
	out, err := h.Records.CreateCall(c.Request.Context(), p, call)
	respond(c, http.StatusCreated, out, err)
}

// CreateCall serves POST /calls and POST /properties/:id/calls.
func (h Handlers) CreateCall(c *gin.Context) { h.createCall(c, false) }

// CreateInspectionCall logs a call against a visible inspection and its property.
func (h Handlers) CreateInspectionCall(c *gin.Context) { h.createCall(c, true) }

func (h Handlers) UpdateCall(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var ch records.CallChanges
	if !bind(c, &ch) {
		return
	}
	out, err := h.Records.UpdateCall(c.Request.Context(), p, c.Param("id"), ch)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) DeleteCall(c *gin.Context) {
	err := h.Records.DeleteCall(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, gin.H{"deleted": true}, err)
}

/* ===================== CONTACTS ===================== */

type contactRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email" binding:"omitempty,email"`
	Relationship string `json:"relationship"`
}

func (h Handlers) ListPropertyContacts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.ListPropertyContacts(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) GetContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	out, err := h.Records.GetContact(c.Request.Context(), p, c.Param("id"))
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) CreateContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req contactRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Records.CreateContact(c.Request.Context(), p, records.Contact{
		PropertyID:   c.Param("id"),
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Relationship: req.Relationship,
	})
	respond(c, http.StatusCreated, out, err)
}

func (h Handlers) UpdateContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var ch records.ContactChanges
	if !bind(c, &ch) {
		return
	}
	out, err := h.Records.UpdateContact(c.Request.Context(), p, c.Param("id"), ch)
	respond(c, http.StatusOK, out, err)
}

func (h Handlers) DeleteContact(c *gin.Context) {
	err := h.Records.DeleteContact(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, gin.H{"deleted": true}, err)
}

func respond(c *gin.Context, status int, data any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, status, data)
}
