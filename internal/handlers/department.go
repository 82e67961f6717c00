package handlers

import (
	"net/http"

	"github.com/otcheredev/patient-queue-service/internal/middleware"
	"github.com/otcheredev/patient-queue-service/internal/services"
)

type DepartmentHandler struct {
	deptService *services.DepartmentService
}

func NewDepartmentHandler(deptService *services.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{
		deptService: deptService,
	}
}

// List returns departments with live waiting counts
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	departments, err := h.deptService.List(ctx, tenantID, middleware.GetBranchID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, departments)
}

// Seed ensures the default departments exist for the caller's scope
func (h *DepartmentHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	created, err := h.deptService.EnsureDefaults(ctx, tenantID, middleware.GetBranchID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}
