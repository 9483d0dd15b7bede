package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/config"
)

// serviceRequestBody is the admin create/update payload — a reduced
// view of catalog.Service covering the fields an operator manages
// through this surface (§1 "the catalog CRUD surface itself is an
// external collaborator"; this is the minimal admin-scoped slice that
// also needs to keep the index in sync via C5).
type serviceRequestBody struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Endpoint    string   `json:"endpoint"`
	Version     string   `json:"version"`
	Status      string   `json:"status"`
	ToolType    string   `json:"tool_type"`
	Visibility  string   `json:"visibility"`
	Domains     []string `json:"domains"`
}

// handleListServices implements GET /admin/services.
func (b *Base) handleListServices(w ErrorResponseWriter, r *http.Request) {
	services, err := b.Reader.ActiveServices(r.Context())
	if err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}
	RespondWithJSON(w, http.StatusOK, services)
}

// handleCreateService implements POST /admin/services: inserts the row
// then immediately adds it to the live service index (§4.5 "single-entity
// delta").
func (b *Base) handleCreateService(w ErrorResponseWriter, r *http.Request) {
	var body serviceRequestBody
	if err := DecodeJSONBody(r, &body); err != nil {
		w.RespondWithError(err)
		return
	}
	if body.Name == "" {
		w.RespondWithError(apierrors.NewValidationError(map[string]string{"name": "must not be empty"}))
		return
	}

	status := catalog.ServiceStatusActive
	if body.Status != "" {
		status = catalog.ServiceStatus(body.Status)
	}
	svc := catalog.Service{
		Name:        body.Name,
		Description: body.Description,
		Endpoint:    body.Endpoint,
		Version:     body.Version,
		Status:      status,
		ToolType:    body.ToolType,
		Visibility:  body.Visibility,
	}
	for _, domain := range body.Domains {
		svc.Industries = append(svc.Industries, catalog.IndustryTag{Domain: domain})
	}

	if err := b.Manager.DB().WithContext(r.Context()).Create(&svc).Error; err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}

	if svc.Status == catalog.ServiceStatusActive {
		if err := b.Lifecycle.AddService(r.Context(), svc.ID); err != nil {
			b.Log.Error(err, "failed to index newly created service", "service_id", svc.ID)
		}
	}

	RespondWithJSON(w, http.StatusCreated, svc)
}

// handleUpdateService implements PUT /admin/services/{id}: updates the
// row then re-embeds it into the service index (§4.5 "update is
// remove+add at the level of subsequent search outputs").
func (b *Base) handleUpdateService(w ErrorResponseWriter, r *http.Request) {
	id, err := parseServiceID(r)
	if err != nil {
		w.RespondWithError(err)
		return
	}

	var body serviceRequestBody
	if err := DecodeJSONBody(r, &body); err != nil {
		w.RespondWithError(err)
		return
	}

	svc, err := b.Reader.ServiceByID(r.Context(), id)
	if err != nil {
		w.RespondWithError(apierrors.NewNotFoundError("service not found"))
		return
	}

	svc.Name = body.Name
	svc.Description = body.Description
	svc.Endpoint = body.Endpoint
	svc.Version = body.Version
	if body.Status != "" {
		svc.Status = catalog.ServiceStatus(body.Status)
	}
	svc.ToolType = body.ToolType
	svc.Visibility = body.Visibility

	if err := b.Manager.DB().WithContext(r.Context()).Save(svc).Error; err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}

	if svc.Status == catalog.ServiceStatusActive {
		if err := b.Lifecycle.UpdateService(r.Context(), svc.ID); err != nil {
			b.Log.Error(err, "failed to re-index updated service", "service_id", svc.ID)
		}
	} else if err := b.Lifecycle.RemoveService(r.Context(), svc.ID); err != nil {
		b.Log.Error(err, "failed to remove deactivated service from index", "service_id", svc.ID)
	}

	RespondWithJSON(w, http.StatusOK, svc)
}

// handleDeleteService implements DELETE /admin/services/{id}: removes
// the row from the live index before the row itself is deleted, so no
// search can return a dangling id in between (§4.5).
func (b *Base) handleDeleteService(w ErrorResponseWriter, r *http.Request) {
	id, err := parseServiceID(r)
	if err != nil {
		w.RespondWithError(err)
		return
	}

	if err := b.Lifecycle.RemoveService(r.Context(), id); err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}
	if err := b.Manager.DB().WithContext(r.Context()).Delete(&catalog.Service{}, id).Error; err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseServiceID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(muxVar(r, "id"), 10, 64)
	if err != nil {
		return 0, apierrors.NewValidationError(map[string]string{"id": "must be a numeric service id"})
	}
	return uint(id), nil
}

// handleHealthz implements GET /healthz: a liveness probe that does not
// require the index to be ready, only that the catalog connection is
// reachable.
func (b *Base) handleHealthz(w ErrorResponseWriter, r *http.Request) {
	sqlDB, err := b.Manager.DB().DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "index_state": string(b.Lifecycle.State())})
}

// handleEnv implements GET /api/env: a debug listing of every
// registered environment variable (internal/config's self-registering
// registry).
func (b *Base) handleEnv(w ErrorResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")
	out := json.RawMessage(config.ExportJSON(component))
	RespondWithJSON(w, http.StatusOK, out)
}
