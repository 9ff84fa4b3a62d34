package scenarios

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroom/internal/api"
	"liveroom/pkg/protocol"
	"liveroom/tests/fixtures"
)

func doAPI(t *testing.T, method, url string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// TestProvisionedRoomFlow walks the CRUD backend's path: provision a record,
// let the teacher claim it over the socket, inspect it live, rotate the
// shareable code, and finally delete it, which ends the live room.
func TestProvisionedRoomFlow(t *testing.T) {
	h := fixtures.NewHarness(t)
	base := h.Server.URL

	status, body := doAPI(t, http.MethodPost, base+"/api/rooms",
		api.CreateRoomRequest{RoomName: "Algebra I"}, "")
	require.Equal(t, http.StatusCreated, status)
	var created api.RoomResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotNil(t, created.Record)
	assert.Len(t, created.Record.RoomCode, 6)

	// The provisioned record wins over whatever the join payload carries.
	teacher := fixtures.Connect(t, h)
	ack := teacher.Join(created.Record.RoomCode, "Ms. Rivera", protocol.RoleTeacher)
	assert.Equal(t, created.Record.RoomID, ack.RoomID)
	assert.Equal(t, "Algebra I", ack.RoomName)

	status, body = doAPI(t, http.MethodGet, base+"/api/rooms/"+ack.RoomID, nil, "")
	require.Equal(t, http.StatusOK, status)
	var fetched api.RoomResponse
	require.NoError(t, json.Unmarshal(body, &fetched))
	require.NotNil(t, fetched.Live)

	// Rotating the code re-keys the live room without disturbing it.
	status, body = doAPI(t, http.MethodPost, base+"/api/rooms/"+ack.RoomID+"/code", nil, "")
	require.Equal(t, http.StatusOK, status)
	var rekeyed api.RoomResponse
	require.NoError(t, json.Unmarshal(body, &rekeyed))
	require.NotNil(t, rekeyed.Record)
	assert.NotEqual(t, created.Record.RoomCode, rekeyed.Record.RoomCode)

	stale := fixtures.Connect(t, h)
	ev := stale.JoinExpectError(created.Record.RoomCode, "Sam", protocol.RoleStudent)
	assert.Equal(t, protocol.CodeRoomNotFound, ev.Code)

	sam := fixtures.Connect(t, h)
	samAck := sam.Join(rekeyed.Record.RoomCode, "Sam", protocol.RoleStudent)
	assert.Equal(t, ack.RoomID, samAck.RoomID)
	teacher.WaitFor(protocol.EventParticipantJoined)

	// Deleting the record ends the live room for everyone first.
	status, _ = doAPI(t, http.MethodDelete, base+"/api/rooms/"+ack.RoomID, nil, "")
	require.Equal(t, http.StatusNoContent, status)
	teacher.WaitFor(protocol.EventRoomEnded)
	sam.WaitFor(protocol.EventRoomEnded)

	status, _ = doAPI(t, http.MethodGet, base+"/api/rooms/"+ack.RoomID, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func signBackendToken(t *testing.T, key, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestAPIAuthGuard(t *testing.T) {
	h := fixtures.NewHarness(t, fixtures.WithAuthKey("shared-secret"))
	base := h.Server.URL

	status, _ := doAPI(t, http.MethodGet, base+"/api/rooms", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doAPI(t, http.MethodGet, base+"/api/rooms", nil,
		signBackendToken(t, "wrong-secret", "crud-backend"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doAPI(t, http.MethodGet, base+"/api/rooms", nil,
		signBackendToken(t, "shared-secret", "crud-backend"))
	assert.Equal(t, http.StatusOK, status)

	// Probes and scrapes stay open.
	status, body := doAPI(t, http.MethodGet, base+"/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)

	status, _ = doAPI(t, http.MethodGet, base+"/metrics", nil, "")
	assert.Equal(t, http.StatusOK, status)
}
