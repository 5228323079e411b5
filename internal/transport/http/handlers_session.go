package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"voxguard/pkg/domain"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/requestcontext"
)

// HandleStartSession handles POST /v1/sessions.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubjectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	session, err := h.compliance.StartSession(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "start session failed",
			"request_id", requestID,
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromSession(session))
}

// HandleTrackVoice handles POST /v1/sessions/{session}/voice. Capture is
// refused with 403 when voice_processing consent has been revoked.
func (h *Handler) HandleTrackVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "session"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TrackVoiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	artifact, err := h.compliance.TrackVoice(ctx, sessionID, subject, req.StorageLocator, req.SizeBytes)
	if err != nil {
		h.logger.WarnContext(ctx, "track voice failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromArtifact(artifact))
}

// HandleMarkProcessed handles POST /v1/voice/{artifact}/processed and
// starts the deletion countdown.
func (h *Handler) HandleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseArtifactID(chi.URLParam(r, "artifact"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	artifact, err := h.compliance.MarkVoiceProcessed(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "mark voice processed failed",
			"request_id", requestcontext.RequestID(ctx),
			"artifact_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromArtifact(artifact))
}

// HandleSanitizeChunk handles POST /v1/sessions/{session}/transcript/chunks.
func (h *Handler) HandleSanitizeChunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "session"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChunkRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.compliance.SanitizeStreaming(ctx, sessionID, h.hasher.Hash(req.SubjectID), req.Chunk)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChunkResponse{
		SanitizedText: res.SanitizedText,
		PIIDetected:   res.PIIDetected,
		Confidence:    res.Confidence,
	})
}

// HandleSanitizeFinal handles POST /v1/sessions/{session}/transcript. Only
// the sanitized output is stored.
func (h *Handler) HandleSanitizeFinal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "session"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TranscriptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject := h.hasher.Hash(req.SubjectID)

	res, err := h.compliance.SanitizeFinal(ctx, sessionID, subject, req.Transcript)
	if err != nil {
		h.logger.ErrorContext(ctx, "final sanitization failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"subject", subject.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromFinalResult(res))
}

// HandleRecordEvent handles POST /v1/sessions/{session}/events. Events are
// refused with 403 unless analytics consent is granted.
func (h *Handler) HandleRecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "session"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	event, err := h.compliance.RecordEvent(ctx, h.hasher.Hash(req.SubjectID), sessionID, req.Name, req.Properties)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, EventResponse{
		EventID:    event.ID.String(),
		Name:       event.Name,
		OccurredAt: event.OccurredAt,
	})
}
