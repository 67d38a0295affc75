package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// MoleculesClient operates on the molecule library.
type MoleculesClient struct {
	client *Client
}

// Create parses a SMILES string into a new library molecule.
func (mc *MoleculesClient) Create(ctx context.Context, req mtypes.CreateRequest) (mtypes.Molecule, error) {
	var mol mtypes.Molecule
	err := mc.client.post(ctx, "/api/v1/molecules", req, &mol)
	return mol, err
}

// Upload parses a structure file (.pdb, .xyz, .mol, .sdf, optionally
// gzipped) into a new library molecule.  The filename's extension selects
// the parser.
func (mc *MoleculesClient) Upload(ctx context.Context, filename string, data []byte) (mtypes.Molecule, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return mtypes.Molecule{}, fmt.Errorf("client: build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return mtypes.Molecule{}, fmt.Errorf("client: build multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return mtypes.Molecule{}, fmt.Errorf("client: build multipart body: %w", err)
	}

	var mol mtypes.Molecule
	err = mc.client.doBytes(ctx, http.MethodPost, "/api/v1/molecules/upload",
		w.FormDataContentType(), buf.Bytes(), &mol)
	return mol, err
}

// List returns every molecule in the library as summaries.
func (mc *MoleculesClient) List(ctx context.Context) (mtypes.ListResponse, error) {
	var resp mtypes.ListResponse
	err := mc.client.get(ctx, "/api/v1/molecules", &resp)
	return resp, err
}

// Get fetches one molecule with full structure data.
func (mc *MoleculesClient) Get(ctx context.Context, id string) (mtypes.Molecule, error) {
	var mol mtypes.Molecule
	err := mc.client.get(ctx, "/api/v1/molecules/"+url.PathEscape(id), &mol)
	return mol, err
}

// Delete removes a molecule from the library.
func (mc *MoleculesClient) Delete(ctx context.Context, id string) error {
	return mc.client.delete(ctx, "/api/v1/molecules/"+url.PathEscape(id))
}

// UpdateGeometry rebuilds the molecule's coordinates from its SMILES at the
// requested spacing.  Molecules parsed from structure files cannot be
// regenerated.
func (mc *MoleculesClient) UpdateGeometry(ctx context.Context, id string, minimize bool) (mtypes.Molecule, error) {
	var mol mtypes.Molecule
	err := mc.client.post(ctx, "/api/v1/molecules/"+url.PathEscape(id)+"/geometry",
		mtypes.UpdateGeometryRequest{Minimize: minimize}, &mol)
	return mol, err
}

// Distance measures the Euclidean distance between two atoms, addressed by
// 0-based indices.
func (mc *MoleculesClient) Distance(ctx context.Context, id string, atom1, atom2 int) (mtypes.DistanceResponse, error) {
	var resp mtypes.DistanceResponse
	path := fmt.Sprintf("/api/v1/molecules/%s/distance?a=%d&b=%d", url.PathEscape(id), atom1, atom2)
	err := mc.client.get(ctx, path, &resp)
	return resp, err
}

// BondDistances returns the length of every bond in the molecule.
func (mc *MoleculesClient) BondDistances(ctx context.Context, id string) (mtypes.BondDistancesResponse, error) {
	var resp mtypes.BondDistancesResponse
	err := mc.client.get(ctx, "/api/v1/molecules/"+url.PathEscape(id)+"/distances", &resp)
	return resp, err
}
