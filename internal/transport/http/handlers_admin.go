package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"voxguard/internal/retention"
	rightsmodels "voxguard/internal/rights/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/requestcontext"
)

// HandleComplianceCheck handles GET /v1/compliance/check. The status code is
// 200 whenever the check itself ran; the verdict is in the body.
func (h *Handler) HandleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	check, err := h.compliance.PerformComplianceCheck(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, check)
}

// HandleVoiceEmergencyCleanup handles POST /v1/admin/voice/emergency-cleanup.
func (h *Handler) HandleVoiceEmergencyCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CleanupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	initiator := requestcontext.ActorID(ctx)

	result, err := h.voice.EmergencyCleanup(ctx, initiator, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "voice emergency cleanup",
		"request_id", requestID,
		"initiator", initiator,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)
	httputil.WriteJSON(w, http.StatusOK, fromSweepResult(result))
}

// HandleRetentionCleanup handles POST /v1/admin/retention/{category}/cleanup.
func (h *Handler) HandleRetentionCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	category, err := retention.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CleanupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	initiator := requestcontext.ActorID(ctx)

	result, err := h.retention.EmergencyCleanup(ctx, category, initiator, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "retention emergency cleanup",
		"request_id", requestID,
		"initiator", initiator,
		"category", category.String(),
		"processed", result.Processed,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleVoiceRetry handles POST /v1/admin/voice/retry. Errored artifacts
// re-enter scheduled_deletion with an immediate deadline.
func (h *Handler) HandleVoiceRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.voice.RetryErrored(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "voice retry requested",
		"request_id", requestcontext.RequestID(ctx),
		"initiator", requestcontext.ActorID(ctx),
		"retried", n,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"retried": n})
}

// HandleVoiceStats handles GET /v1/admin/voice/stats.
func (h *Handler) HandleVoiceStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.voice.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[status.String()] = n
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleRetentionRuns handles GET /v1/admin/retention/runs, newest first.
func (h *Handler) HandleRetentionRuns(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"runs": h.retention.LastRuns()})
}

// HandleSystemRevoke handles POST /v1/admin/consent/revoke. This is the
// only path that can withdraw a necessary purpose.
func (h *Handler) HandleSystemRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SystemRevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	initiator := requestcontext.ActorID(ctx)

	record, err := h.consent.SystemRevoke(ctx, req.parsedSubject, req.parsedPurpose, initiator, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromConsentRecord(record))
}

// HandleAdminErasure handles POST /v1/admin/rights/erasure. A single subject
// is an emergency erasure; several are a bulk erasure. Incomplete erasures
// still return 200 with complete=false so per-subject results are visible.
func (h *Handler) HandleAdminErasure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ErasureRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	initiator := requestcontext.ActorID(ctx)

	var (
		reports []rightsmodels.ErasureReport
		err     error
	)
	if len(req.SubjectHashes) == 1 {
		subject, perr := domain.ParseSubjectHash(req.SubjectHashes[0])
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		var report rightsmodels.ErasureReport
		report, err = h.rights.EmergencyErase(ctx, subject, initiator, req.Reason)
		reports = []rightsmodels.ErasureReport{report}
	} else {
		reports, err = h.rights.BulkErase(ctx, req.SubjectHashes, initiator, req.Reason)
	}
	if err != nil && (!dErrors.HasCode(err, dErrors.CodeDeletionFailed) || len(reports) == 0) {
		httputil.WriteError(w, err)
		return
	}

	resp := ErasureResponse{Complete: err == nil, Reports: reports}
	var de *dErrors.Error
	if dErrors.As(err, &de) {
		resp.Error = de.Message
	}
	h.logger.WarnContext(ctx, "administrative erasure",
		"request_id", requestID,
		"initiator", initiator,
		"subjects", len(reports),
		"complete", resp.Complete,
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}
