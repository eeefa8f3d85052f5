package httpapi

import (
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/types"
)

// maxUploadBytes caps a registration upload (form fields plus photo).
const maxUploadBytes = 8 << 20

const badRequestToken = "BAD_REQUEST"

// handleRFID is the badge reader endpoint. The reader only understands
// the bare result token, so errors are tokens too.
func (s *Server) handleRFID(w http.ResponseWriter, r *http.Request) {
	cardID := strings.TrimSpace(r.URL.Query().Get("uid"))
	if cardID == "" {
		writeToken(w, r, http.StatusBadRequest, badRequestToken)
		return
	}

	s.logger.Info("card detected", "card_id", cardID)
	res, err := s.correlator.Submit(r.Context(), cardID)
	switch {
	case errors.Is(err, service.ErrInvalidCardID):
		writeToken(w, r, http.StatusBadRequest, badRequestToken)
		return
	case errors.Is(err, service.ErrCorrelatorStopped):
		writeToken(w, r, http.StatusGatewayTimeout, types.ResultTimeout.String())
		return
	case err != nil:
		s.logger.Error("scan error", "card_id", cardID, "err", err)
		writeToken(w, r, http.StatusGatewayTimeout, types.ResultTimeout.String())
		return
	}

	status := http.StatusOK
	if res == types.ResultTimeout {
		s.logger.Warn("processing timeout", "card_id", cardID)
		status = http.StatusGatewayTimeout
	}
	writeToken(w, r, status, res.String())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cards, refs := s.identities.Counts()
	active, marked := s.attendance.Counts()
	running := s.correlator.Running()

	status := http.StatusOK
	if !running {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, types.Status{
		OK:             running,
		QueueDepth:     s.correlator.QueueDepth(),
		Pending:        s.correlator.Pending(),
		Identities:     cards,
		References:     refs,
		ActiveSessions: active,
		MarkedSessions: marked,
		ServerTime:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history_unavailable", "the configured sink cannot be read back")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, 1000)
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("attendance history error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if recs == nil {
		recs = []store.AttendanceRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.attendance.Sessions()})
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	cardID := strings.TrimSpace(r.PathValue("card_id"))
	if !s.attendance.Cancel(cardID) {
		writeError(w, http.StatusNotFound, "no_active_session", "no pending attendance mark for card")
		return
	}
	s.logger.Info("attendance session cancelled", "card_id", cardID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "no_snapshot", store.ErrNoSnapshot.Error())
		return
	}
	snap, err := s.snapshots.Latest(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			writeError(w, http.StatusNotFound, "no_snapshot", err.Error())
			return
		}
		s.logger.Error("snapshot error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.JPEG)))
	w.Header().Set("X-Matched-Name", snap.Name)
	w.Header().Set("Last-Modified", snap.TakenAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.JPEG)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.identities.Load(r.Context()); err != nil {
		s.logger.Error("identity reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	cards, refs := s.identities.Counts()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "identities": cards, "references": refs})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.registrar == nil {
		writeError(w, http.StatusNotImplemented, "registration_disabled", "registration is not enabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_form", "expected multipart form with name, card_id and photo")
		return
	}

	req := service.RegisterRequest{
		CardID: r.FormValue("card_id"),
		Name:   r.FormValue("name"),
	}
	if f, _, err := r.FormFile("photo"); err == nil {
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_photo", "photo must be a JPEG or PNG image")
			return
		}
		req.Photo = img
	}

	rec, err := s.registrar.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName),
			errors.Is(err, service.ErrInvalidUserName):
			writeError(w, http.StatusBadRequest, "invalid_name", err.Error())
		case errors.Is(err, service.ErrInvalidCardID):
			writeError(w, http.StatusBadRequest, "invalid_card_id", err.Error())
		case errors.Is(err, service.ErrNameIsCardID):
			writeError(w, http.StatusBadRequest, "name_is_card_id", err.Error())
		case errors.Is(err, service.ErrMissingPhoto):
			writeError(w, http.StatusBadRequest, "missing_photo", err.Error())
		case errors.Is(err, service.ErrNoFaceInPhoto):
			writeError(w, http.StatusUnprocessableEntity, "no_face", err.Error())
		default:
			s.logger.Error("registration error", "card_id", req.CardID, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	s.logger.Info("user registered", "card_id", rec.CardID, "name", rec.Name)
	cards, refs := s.identities.Counts()
	writeJSON(w, http.StatusCreated, types.RegisterResponse{
		OK:         true,
		CardID:     rec.CardID,
		Name:       rec.Name,
		Identities: cards,
		References: refs,
	})
}

// writeToken answers a badge reader with a bare result token, or a
// google.protobuf.StringValue when the reader asks for protobuf.
func writeToken(w http.ResponseWriter, r *http.Request, status int, token string) {
	if wantsProtobuf(r) {
		writeProto(w, status, wrapperspb.String(token))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(token))
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
