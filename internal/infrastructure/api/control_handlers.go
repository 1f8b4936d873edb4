package api

import (
	"context"
	"net/http"

	"shopify-insights/internal/domain"

	"github.com/rs/zerolog"
)

type controlHandlers struct {
	deps   Dependencies
	logger zerolog.Logger
}

type syncResponse struct {
	SyncID string             `json:"syncId,omitempty"`
	Result *domain.SyncResult `json:"result"`
}

// performSync runs a manual sync and answers when it is done. A sync that is
// already running answers 409.
func (h *controlHandlers) performSync(w http.ResponseWriter, r *http.Request) {
	syncType := domain.ParseSyncType(r.URL.Query().Get("type"))

	// the sync finishes even if the caller goes away
	ctx := context.WithoutCancel(r.Context())
	result := h.deps.Sync.PerformSync(ctx, domain.TriggerManual, syncType)

	status := http.StatusOK
	switch result.Status {
	case domain.SyncSkipped:
		status = http.StatusConflict
	case domain.SyncFailed:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, syncResponse{SyncID: result.SyncID, Result: result})
}

func (h *controlHandlers) syncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Sync.Status())
}

func (h *controlHandlers) startPolling(w http.ResponseWriter, r *http.Request) {
	h.deps.Poller.Start(h.deps.BaseContext)
	writeJSON(w, http.StatusOK, h.deps.Poller.Status())
}

func (h *controlHandlers) stopPolling(w http.ResponseWriter, r *http.Request) {
	h.deps.Poller.Stop()
	writeJSON(w, http.StatusOK, h.deps.Poller.Status())
}

func (h *controlHandlers) pollingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Poller.Status())
}

func (h *controlHandlers) checkPolling(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Poller.CheckForUpdates(r.Context()))
}

func (h *controlHandlers) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deps.Stats.Summary(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build summary")
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type healthResponse struct {
	Status string                 `json:"status"`
	Sync   domain.SyncStatus      `json:"sync,omitempty"`
	Bus    map[string]interface{} `json:"bus,omitempty"`
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if deps.Sync != nil {
			resp.Sync = deps.Sync.Status().Status
		}
		if deps.Bus != nil {
			resp.Bus = deps.Bus.GetStats()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
