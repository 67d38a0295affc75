package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	appviewer "github.com/molscope/molscope/internal/application/viewer"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/pkg/errors"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// ViewerHandler serves the /api/v1/viewer/sessions resource.  Every mutating
// endpoint responds with the session's full info snapshot, so clients always
// see the state, selection, and notice that resulted from their call.
type ViewerHandler struct {
	manager   *appviewer.Manager
	molecules appmol.Service
	logger    logging.Logger
}

// NewViewerHandler creates a ViewerHandler over the session manager.  The
// molecule service resolves molecule IDs for session loads.
func NewViewerHandler(manager *appviewer.Manager, molecules appmol.Service, logger logging.Logger) *ViewerHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ViewerHandler{manager: manager, molecules: molecules, logger: logger}
}

// session resolves the {sessionID} route parameter.
func (h *ViewerHandler) session(r *http.Request) (*appviewer.Session, error) {
	return h.manager.Get(chi.URLParam(r, "sessionID"))
}

// Create handles POST /viewer/sessions.  A session whose engine failed to
// initialize is still created; its info carries the error state so the
// client can surface it and retry.
func (h *ViewerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vtypes.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, err)
			return
		}
	}

	sess, err := h.manager.Open(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

// Get handles GET /viewer/sessions/{sessionID}.
func (h *ViewerHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// Delete handles DELETE /viewer/sessions/{sessionID}.
func (h *ViewerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadMolecule handles PUT /viewer/sessions/{sessionID}/molecule: fetch the
// named molecule from the library and display it.
func (h *ViewerHandler) LoadMolecule(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var req vtypes.LoadMoleculeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	mol, err := h.molecules.Fetch(r.Context(), req.MoleculeID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	dto := mol.ToDTO()
	if err := sess.LoadMolecule(&dto); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// Pick handles POST /viewer/sessions/{sessionID}/pick.  The atom is named by
// render-model serial, or by viewport coordinates for engines that support
// coordinate picking; serial wins when both are present.
func (h *ViewerHandler) Pick(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var req vtypes.PickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	switch {
	case req.Serial > 0:
		err = sess.PickSerial(req.Serial)
	case req.X != nil && req.Y != nil:
		err = sess.PickAt(*req.X, *req.Y)
	default:
		err = errors.New(errors.CodeInvalidParam, "pick needs a serial or x/y coordinates")
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// ClearSelection handles POST /viewer/sessions/{sessionID}/selection/clear.
func (h *ViewerHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.cameraOp(w, r, func(s *appviewer.Session) error { return s.ClearSelection() })
}

// ZoomIn handles POST /viewer/sessions/{sessionID}/camera/zoom-in.
func (h *ViewerHandler) ZoomIn(w http.ResponseWriter, r *http.Request) {
	h.cameraOp(w, r, func(s *appviewer.Session) error { return s.ZoomIn() })
}

// ZoomOut handles POST /viewer/sessions/{sessionID}/camera/zoom-out.
func (h *ViewerHandler) ZoomOut(w http.ResponseWriter, r *http.Request) {
	h.cameraOp(w, r, func(s *appviewer.Session) error { return s.ZoomOut() })
}

// ResetView handles POST /viewer/sessions/{sessionID}/camera/reset.
func (h *ViewerHandler) ResetView(w http.ResponseWriter, r *http.Request) {
	h.cameraOp(w, r, func(s *appviewer.Session) error { return s.ResetView() })
}

// cameraOp runs a bodyless session operation and responds with the snapshot.
func (h *ViewerHandler) cameraOp(w http.ResponseWriter, r *http.Request, op func(*appviewer.Session) error) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := op(sess); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// Resize handles POST /viewer/sessions/{sessionID}/resize.
func (h *ViewerHandler) Resize(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var req vtypes.ResizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := sess.Resize(req.Width, req.Height); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// Frame handles GET /viewer/sessions/{sessionID}/frame: the current frame as
// a PNG.  Engines without snapshot support yield 501.
func (h *ViewerHandler) Frame(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	data, err := sess.Frame()
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
