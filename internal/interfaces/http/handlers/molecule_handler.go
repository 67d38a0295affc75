package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// multipartMemory caps the in-memory part of multipart parsing; larger
// uploads spill to temp files.
const multipartMemory = 4 << 20

// MoleculeHandler serves the /api/v1/molecules resource.
type MoleculeHandler struct {
	svc    appmol.Service
	logger logging.Logger
}

// NewMoleculeHandler creates a MoleculeHandler backed by the molecule service.
func NewMoleculeHandler(svc appmol.Service, logger logging.Logger) *MoleculeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MoleculeHandler{svc: svc, logger: logger}
}

// Create handles POST /molecules: build a molecule from a SMILES string.
func (h *MoleculeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req mtypes.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	dto, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// Upload handles POST /molecules/upload: parse an uploaded structure file.
// The file arrives as the multipart field "file"; gzip payloads are accepted.
func (h *MoleculeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeAppError(w, errors.Wrap(err, errors.CodeInvalidParam, "request is not valid multipart form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAppError(w, errors.Wrap(err, errors.CodeInvalidParam, `multipart field "file" is required`))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeAppError(w, errors.Wrap(err, errors.CodeInvalidParam, "uploaded file could not be read"))
		return
	}

	dto, err := h.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// List handles GET /molecules.
func (h *MoleculeHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get handles GET /molecules/{moleculeID}.
func (h *MoleculeHandler) Get(w http.ResponseWriter, r *http.Request) {
	dto, err := h.svc.Get(r.Context(), chi.URLParam(r, "moleculeID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Delete handles DELETE /molecules/{moleculeID}.
func (h *MoleculeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "moleculeID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateGeometry handles POST /molecules/{moleculeID}/geometry: regenerate
// the synthetic geometry from the stored SMILES, switching the spacing mode.
func (h *MoleculeHandler) UpdateGeometry(w http.ResponseWriter, r *http.Request) {
	var req mtypes.UpdateGeometryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	dto, err := h.svc.UpdateGeometry(r.Context(), chi.URLParam(r, "moleculeID"), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// BondDistances handles GET /molecules/{moleculeID}/distances.
func (h *MoleculeHandler) BondDistances(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.BondDistances(r.Context(), chi.URLParam(r, "moleculeID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Distance handles GET /molecules/{moleculeID}/distance?a=&b=, the distance
// between two 0-based atom indices.
func (h *MoleculeHandler) Distance(w http.ResponseWriter, r *http.Request) {
	a, err := queryAtomIndex(r, "a")
	if err != nil {
		writeAppError(w, err)
		return
	}
	b, err := queryAtomIndex(r, "b")
	if err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Distance(r.Context(), chi.URLParam(r, "moleculeID"), a, b)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func queryAtomIndex(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, errors.Newf(errors.CodeInvalidParam, "query parameter %q is required", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf(errors.CodeInvalidParam, "query parameter %q must be an atom index", key)
	}
	return n, nil
}
