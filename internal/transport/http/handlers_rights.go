package httptransport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	rightsmodels "voxguard/internal/rights/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/requestcontext"
)

// HandleRequestExport handles POST /v1/rights/export. The request is
// accepted and processed in the background; callers poll GET /v1/rights/{id}.
func (h *Handler) HandleRequestExport(w http.ResponseWriter, r *http.Request) {
	h.handleSubjectRequest(w, r, "export", h.compliance.RequestDataExport)
}

// HandleRequestDeletion handles POST /v1/rights/deletion.
func (h *Handler) HandleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	h.handleSubjectRequest(w, r, "deletion", h.compliance.RequestDataDeletion)
}

func (h *Handler) handleSubjectRequest(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	create func(context.Context, domain.SubjectHash) (*rightsmodels.Request, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubjectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	created, err := create(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "rights request failed",
			"request_id", requestID,
			"kind", kind,
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/rights/"+created.ID.String())
	httputil.WriteJSON(w, http.StatusAccepted, fromRightsRequest(created))
}

// HandleRequestRectification handles POST /v1/rights/rectification.
func (h *Handler) HandleRequestRectification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RectificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	created, err := h.rights.CreateRectificationRequest(ctx, subject, req.parsedSessionID, req.Correction)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.rights.Submit(ctx, created.ID); err != nil {
		// The drain task picks up requests left pending.
		h.logger.WarnContext(ctx, "rectification left pending",
			"request_id", requestID,
			"rights_request_id", created.ID.String(),
			"error", err,
		)
	}
	w.Header().Set("Location", "/v1/rights/"+created.ID.String())
	httputil.WriteJSON(w, http.StatusAccepted, fromRightsRequest(created))
}

// HandleGetRequest handles GET /v1/rights/{id}.
func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	got, err := h.rights.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRightsRequest(got))
}

// HandleDownload handles GET /v1/rights/download/{token}. Each token
// downloads at most once.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bundle, err := h.rights.Download(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.WarnContext(ctx, "export download rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="data-export.json"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(bundle)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bundle)
}
