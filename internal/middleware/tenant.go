package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	BranchIDKey contextKey = "branch_id"
)

// Tenant middleware extracts the tenant ID (required) and branch ID
// (optional) from headers. Every downstream query is constrained to the
// tenant; no cross-tenant visibility exists.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantIDStr := r.Header.Get("X-Tenant-ID")
		if tenantIDStr == "" {
			log.Warn().Msg("Missing X-Tenant-ID header")
			http.Error(w, "X-Tenant-ID header is required", http.StatusBadRequest)
			return
		}

		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantIDStr).Msg("Invalid tenant ID")
			http.Error(w, "Invalid X-Tenant-ID format", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)

		if branchIDStr := r.Header.Get("X-Branch-ID"); branchIDStr != "" {
			branchID, err := uuid.Parse(branchIDStr)
			if err != nil {
				log.Warn().Err(err).Str("branch_id", branchIDStr).Msg("Invalid branch ID")
				http.Error(w, "Invalid X-Branch-ID format", http.StatusBadRequest)
				return
			}
			ctx = context.WithValue(ctx, BranchIDKey, branchID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantID extracts the tenant ID from context
func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}

// GetBranchID extracts the optional branch ID from context; nil when the
// request is tenant-wide
func GetBranchID(ctx context.Context) *uuid.UUID {
	if branchID, ok := ctx.Value(BranchIDKey).(uuid.UUID); ok {
		return &branchID
	}
	return nil
}
