package client

import (
	"context"
	"net/http"
	"net/url"

	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// SessionsClient operates on viewer sessions.
type SessionsClient struct {
	client *Client
}

// Frame is one rendered viewport image.
type Frame struct {
	Data        []byte
	ContentType string
}

func sessionPath(id string) string {
	return "/api/v1/viewer/sessions/" + url.PathEscape(id)
}

// Create opens a viewer session.  A session whose engine failed to
// initialize is still created and reports state "error"; inspect
// SessionInfo.State before use.
func (sc *SessionsClient) Create(ctx context.Context, req vtypes.CreateSessionRequest) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.post(ctx, "/api/v1/viewer/sessions", req, &info)
	return info, err
}

// Get fetches the session's current state.
func (sc *SessionsClient) Get(ctx context.Context, id string) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.get(ctx, sessionPath(id), &info)
	return info, err
}

// Delete tears the session down and releases its rendering resources.
func (sc *SessionsClient) Delete(ctx context.Context, id string) error {
	return sc.client.delete(ctx, sessionPath(id))
}

// LoadMolecule displays a library molecule in the session.
func (sc *SessionsClient) LoadMolecule(ctx context.Context, id, moleculeID string) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.put(ctx, sessionPath(id)+"/molecule",
		vtypes.LoadMoleculeRequest{MoleculeID: moleculeID}, &info)
	return info, err
}

// Pick reports an atom click.  Serial takes precedence over coordinates
// when both are set.
func (sc *SessionsClient) Pick(ctx context.Context, id string, req vtypes.PickRequest) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.post(ctx, sessionPath(id)+"/pick", req, &info)
	return info, err
}

// PickSerial selects the atom with the given render-model serial.
func (sc *SessionsClient) PickSerial(ctx context.Context, id string, serial int) (vtypes.SessionInfo, error) {
	return sc.Pick(ctx, id, vtypes.PickRequest{Serial: serial})
}

// PickAt selects whatever atom the engine resolves at the viewport
// position.  Requires an engine with coordinate picking.
func (sc *SessionsClient) PickAt(ctx context.Context, id string, x, y float64) (vtypes.SessionInfo, error) {
	return sc.Pick(ctx, id, vtypes.PickRequest{X: &x, Y: &y})
}

// ClearSelection drops all selected atoms and their highlights.
func (sc *SessionsClient) ClearSelection(ctx context.Context, id string) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.post(ctx, sessionPath(id)+"/selection/clear", nil, &info)
	return info, err
}

// ZoomIn steps the camera closer.
func (sc *SessionsClient) ZoomIn(ctx context.Context, id string) (vtypes.SessionInfo, error) {
	return sc.camera(ctx, id, "zoom-in")
}

// ZoomOut steps the camera away.
func (sc *SessionsClient) ZoomOut(ctx context.Context, id string) (vtypes.SessionInfo, error) {
	return sc.camera(ctx, id, "zoom-out")
}

// ResetView restores the default framing of the displayed molecule.
func (sc *SessionsClient) ResetView(ctx context.Context, id string) (vtypes.SessionInfo, error) {
	return sc.camera(ctx, id, "reset")
}

func (sc *SessionsClient) camera(ctx context.Context, id, op string) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.post(ctx, sessionPath(id)+"/camera/"+op, nil, &info)
	return info, err
}

// Resize changes the mount surface dimensions.
func (sc *SessionsClient) Resize(ctx context.Context, id string, width, height int) (vtypes.SessionInfo, error) {
	var info vtypes.SessionInfo
	err := sc.client.post(ctx, sessionPath(id)+"/resize",
		vtypes.ResizeRequest{Width: width, Height: height}, &info)
	return info, err
}

// Frame fetches one rendered image of the current scene.  Engines without
// snapshot support answer 501.
func (sc *SessionsClient) Frame(ctx context.Context, id string) (Frame, error) {
	var raw rawResponse
	err := sc.client.doBytes(ctx, http.MethodGet, sessionPath(id)+"/frame", "", nil, &raw)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: raw.Data, ContentType: raw.ContentType}, nil
}
