package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marcochiesi/editorial-access-manager/internal/routing"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

type capabilityChecker interface {
	Grants(ctx context.Context, req capability.Request) ([]string, error)
	UserCan(ctx context.Context, userID int64, capability string, objectID int64) (bool, error)
}

type capabilityCheckRequest struct {
	Capability string `json:"capability"`
	UserID     int64  `json:"user_id"`
	ObjectID   int64  `json:"object_id"`
}

type capabilityCheckResponse struct {
	Capability string   `json:"capability"`
	UserID     int64    `json:"user_id"`
	ObjectID   int64    `json:"object_id"`
	Allowed    bool     `json:"allowed"`
	Grants     []string `json:"grants"`
}

// handleCapabilityCheck answers whether user_id may perform capability on
// object_id. user_id defaults to the acting user.
func handleCapabilityCheck(checker capabilityChecker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capabilityCheckRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
		req.Capability = strings.TrimSpace(req.Capability)
		if req.Capability == "" {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "capability required")
			return
		}
		if req.UserID == 0 {
			req.UserID, _ = currentActor(r.Context())
		}

		fail := func(err error) {
			logger.Error("capability check", "capability", req.Capability, "user_id", req.UserID, "object_id", req.ObjectID, "err", err)
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "capability_check_failed", "capability check failed")
		}

		grants, err := checker.Grants(r.Context(), capability.Request{Capability: req.Capability, UserID: req.UserID, ObjectID: req.ObjectID})
		if err != nil {
			fail(err)
			return
		}
		allowed, err := checker.UserCan(r.Context(), req.UserID, req.Capability, req.ObjectID)
		if err != nil {
			fail(err)
			return
		}
		if grants == nil {
			grants = []string{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(capabilityCheckResponse{
			Capability: req.Capability,
			UserID:     req.UserID,
			ObjectID:   req.ObjectID,
			Allowed:    allowed,
			Grants:     grants,
		})
	})
}
