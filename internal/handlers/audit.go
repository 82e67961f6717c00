package handlers

import (
	"net/http"
	"strconv"

	"github.com/otcheredev/patient-queue-service/internal/middleware"
	"github.com/otcheredev/patient-queue-service/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// List returns the tenant's audit trail, newest first. With
// ?resource_id= it narrows to a single queue entry's history; limit and
// offset page through the rest.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	if resourceID := r.URL.Query().Get("resource_id"); resourceID != "" {
		logs, err := h.auditService.ByResource(ctx, tenantID, resourceID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.auditService.List(ctx, tenantID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
