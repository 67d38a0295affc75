package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	"github.com/molscope/molscope/internal/infrastructure/storage"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

const waterXYZ = "3\nwater\nO 0.000 0.000 0.117\nH 0.000 0.757 -0.471\nH 0.000 -0.757 -0.471\n"

// newMoleculeAPI mounts a MoleculeHandler on the route shapes the router
// uses, backed by a real in-memory library.
func newMoleculeAPI(t *testing.T) (http.Handler, appmol.Service) {
	t.Helper()

	svc := appmol.NewService(storage.NewLibrary())
	h := NewMoleculeHandler(svc, nil)

	r := chi.NewRouter()
	r.Route("/molecules", func(mr chi.Router) {
		mr.Get("/", h.List)
		mr.Post("/", h.Create)
		mr.Post("/upload", h.Upload)

		mr.Route("/{moleculeID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
			item.Post("/geometry", h.UpdateGeometry)
			item.Get("/distances", h.BondDistances)
			item.Get("/distance", h.Distance)
		})
	})
	return r, svc
}

func doJSON(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), "body: %s", rec.Body.String())
	return er
}

func seedMolecule(t *testing.T, svc appmol.Service, smiles, name string) mtypes.Molecule {
	t.Helper()
	mol, err := svc.Create(context.Background(), mtypes.CreateRequest{SMILES: smiles, Name: name})
	require.NoError(t, err)
	return mol
}

func TestMoleculeHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := doJSON(api, http.MethodPost, "/molecules", `{"smiles":"CCO","name":"Ethanol"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var mol mtypes.Molecule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mol))
		assert.NotEmpty(t, mol.ID)
		assert.Equal(t, "Ethanol", mol.Name)
		assert.Equal(t, "C2O", mol.Formula)
		assert.Len(t, mol.Atoms, 3)
		assert.Len(t, mol.Bonds, 2)
		assert.False(t, mol.Minimized)
	})

	t.Run("malformed json", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := doJSON(api, http.MethodPost, "/molecules", `{"smiles":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, rec).Code)
	})

	t.Run("missing smiles", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := doJSON(api, http.MethodPost, "/molecules", `{"name":"Empty"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, rec).Code)
	})

	t.Run("unparseable smiles", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := doJSON(api, http.MethodPost, "/molecules", `{"smiles":"123=#$"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeInvalidSMILES), decodeError(t, rec).Code)
	})
}

// uploadRequest builds a multipart POST carrying data as the "file" field.
func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/molecules/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMoleculeHandler_Upload(t *testing.T) {
	t.Run("xyz file", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, uploadRequest(t, "water.xyz", []byte(waterXYZ)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var mol mtypes.Molecule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mol))
		assert.Equal(t, "water", mol.Name)
		assert.Len(t, mol.Atoms, 3)
		assert.Empty(t, mol.SMILES)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, uploadRequest(t, "structure.cif", []byte("data_block")))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeUnsupportedFormat), decodeError(t, rec).Code)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, uploadRequest(t, "broken.xyz", []byte("not a number\n")))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, string(errors.CodeMoleculeParse), decodeError(t, rec).Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "water"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/molecules/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		er := decodeError(t, rec)
		assert.Equal(t, string(errors.CodeInvalidParam), er.Code)
		assert.Contains(t, er.Message, `"file"`)
	})

	t.Run("not multipart", func(t *testing.T) {
		api, _ := newMoleculeAPI(t)

		rec := doJSON(api, http.MethodPost, "/molecules/upload", `{"file":"nope"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, rec).Code)
	})
}

func TestMoleculeHandler_ListGetDelete(t *testing.T) {
	api, svc := newMoleculeAPI(t)

	rec := doJSON(api, http.MethodGet, "/molecules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list mtypes.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Zero(t, list.Total)

	mol := seedMolecule(t, svc, "CCO", "Ethanol")

	rec = doJSON(api, http.MethodGet, "/molecules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, mol.ID, list.Molecules[0].ID)
	assert.Equal(t, 3, list.Molecules[0].AtomCount)

	rec = doJSON(api, http.MethodGet, "/molecules/"+mol.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got mtypes.Molecule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, mol.ID, got.ID)
	assert.Equal(t, "C2O", got.Formula)

	rec = doJSON(api, http.MethodGet, "/molecules/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(errors.CodeMoleculeNotFound), decodeError(t, rec).Code)

	rec = doJSON(api, http.MethodDelete, "/molecules/"+mol.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doJSON(api, http.MethodDelete, "/molecules/"+mol.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoleculeHandler_UpdateGeometry(t *testing.T) {
	api, svc := newMoleculeAPI(t)
	mol := seedMolecule(t, svc, "CCO", "Ethanol")

	rec := doJSON(api, http.MethodPost, "/molecules/"+mol.ID+"/geometry", `{"minimize":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated mtypes.Molecule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, mol.ID, updated.ID)
	assert.True(t, updated.Minimized)
	assert.InDelta(t, 1.24, updated.BondDistances["0-1"], 1e-9)

	rec = doJSON(api, http.MethodPost, "/molecules/nope/geometry", `{"minimize":true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoleculeHandler_Distance(t *testing.T) {
	api, svc := newMoleculeAPI(t)
	mol := seedMolecule(t, svc, "CCO", "Ethanol")

	t.Run("adjacent atoms", func(t *testing.T) {
		rec := doJSON(api, http.MethodGet, "/molecules/"+mol.ID+"/distance?a=0&b=1", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res mtypes.DistanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 0, res.Atom1)
		assert.Equal(t, 1, res.Atom2)
		assert.InDelta(t, 1.58, res.Distance, 1e-9)
	})

	t.Run("missing parameter", func(t *testing.T) {
		rec := doJSON(api, http.MethodGet, "/molecules/"+mol.ID+"/distance?a=0", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		er := decodeError(t, rec)
		assert.Equal(t, string(errors.CodeInvalidParam), er.Code)
		assert.Contains(t, er.Message, `"b"`)
	})

	t.Run("non-numeric parameter", func(t *testing.T) {
		rec := doJSON(api, http.MethodGet, "/molecules/"+mol.ID+"/distance?a=first&b=1", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, rec).Code)
	})

	t.Run("index out of range", func(t *testing.T) {
		rec := doJSON(api, http.MethodGet, "/molecules/"+mol.ID+"/distance?a=0&b=99", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, string(errors.CodeAtomIndexOutOfRange), decodeError(t, rec).Code)
	})
}

func TestMoleculeHandler_BondDistances(t *testing.T) {
	api, svc := newMoleculeAPI(t)
	mol := seedMolecule(t, svc, "CCO", "Ethanol")

	rec := doJSON(api, http.MethodGet, "/molecules/"+mol.ID+"/distances", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res mtypes.BondDistancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, mol.ID, res.MoleculeID)
	require.Len(t, res.Distances, 2)
	assert.InDelta(t, 1.58, res.Distances["0-1"], 1e-9)
	assert.InDelta(t, 1.58, res.Distances["1-2"], 1e-9)
}
