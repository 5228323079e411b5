package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	consentmodels "voxguard/internal/consent/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/requestcontext"
)

// HandleRecordConsent handles POST /v1/consent. Client IP and user agent
// come from the request, not the body.
func (h *Handler) HandleRecordConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	record, err := h.compliance.RecordConsent(ctx, req.parsedSessionID, subject, req.parsedPurpose, *req.Granted,
		consentmodels.Metadata{SourceVersion: req.SourceVersion})
	if err != nil {
		h.logger.WarnContext(ctx, "record consent failed",
			"request_id", requestID,
			"subject", subject.Short(),
			"purpose", req.Purpose,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromConsentRecord(record))
}

// HandleRevokeConsent handles POST /v1/consent/revoke. Withdrawal appends a
// record; earlier decisions stay in the history.
func (h *Handler) HandleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RevokeConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	record, err := h.consent.Revoke(ctx, req.parsedSessionID, subject, req.parsedPurpose,
		consentmodels.Metadata{SourceVersion: req.SourceVersion})
	if err != nil {
		h.logger.WarnContext(ctx, "revoke consent failed",
			"request_id", requestID,
			"subject", subject.Short(),
			"purpose", req.Purpose,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromConsentRecord(record))
}

// HandleGetConsent handles GET /v1/consent/{subject}/{purpose}. The path
// carries the subject hash returned when consent was recorded.
func (h *Handler) HandleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := domain.ParseSubjectHash(chi.URLParam(r, "subject"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purpose, err := domain.ParseConsentPurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	authorized, err := h.compliance.HasValidConsent(ctx, subject, purpose)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConsentStatusResponse{
		SubjectHash: subject.String(),
		Purpose:     purpose.String(),
		Authorized:  authorized,
	})
}

// HandleListConsent handles GET /v1/consent/{subject} and returns the
// effective state of every purpose, defaults included.
func (h *Handler) HandleListConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := domain.ParseSubjectHash(chi.URLParam(r, "subject"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	states, err := h.consent.CurrentAll(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent overview failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromPurposeStates(subject.String(), states))
}
