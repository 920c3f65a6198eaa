package obs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/golive/pkg/log"
)

// fakeOBS speaks enough of obs-websocket v5 for the transmitter.
type fakeOBS struct {
	password  string
	streaming bool
	failStart bool
	stall     bool

	mu       sync.Mutex
	requests []string
}

func (f *fakeOBS) requestTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeOBS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h := map[string]any{"obsWebSocketVersion": "5.4.2", "rpcVersion": 1}
	const salt, challenge = "salt", "challenge"
	if f.password != "" {
		h["authentication"] = map[string]string{"salt": salt, "challenge": challenge}
	}
	if err := writeOp(conn, opHello, h); err != nil {
		return
	}

	var id identify
	if err := readOp(conn, opIdentify, &id); err != nil {
		return
	}
	if f.password != "" && id.Authentication != authResponse(f.password, salt, challenge) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4009, "Authentication failed."))
		return
	}
	if err := writeOp(conn, opIdentified, map[string]int{"negotiatedRpcVersion": 1}); err != nil {
		return
	}

	for {
		var req request
		if err := readOp(conn, opRequest, &req); err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req.RequestType)
		f.mu.Unlock()

		if f.stall {
			continue
		}

		// An unrelated event first; the client must skip it.
		_ = writeOp(conn, 5, map[string]any{"eventType": "StreamStateChanged"})

		resp := map[string]any{
			"requestType":   req.RequestType,
			"requestId":     req.RequestID,
			"requestStatus": map[string]any{"result": true, "code": 100},
		}
		switch req.RequestType {
		case "GetStreamStatus":
			resp["responseData"] = map[string]any{"outputActive": f.streaming}
		case "StartStream":
			if f.failStart {
				resp["requestStatus"] = map[string]any{"result": false, "code": 500, "comment": "no stream service configured"}
			}
		}
		if err := writeOp(conn, opRequestResponse, resp); err != nil {
			return
		}
	}
}

func newTestTransmitter(t *testing.T, f *fakeOBS, password string) *Transmitter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Config{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		Password: password,
		Timeout:  2 * time.Second,
	}, log.NewNoopLogger())
}

func TestTransmitter_StartsStream(t *testing.T) {
	f := &fakeOBS{}
	tr := newTestTransmitter(t, f, "")

	require.NoError(t, tr.StartOrJoin(context.Background()))
	assert.Equal(t, []string{"GetStreamStatus", "StartStream"}, f.requestTypes())
}

func TestTransmitter_JoinsRunningStream(t *testing.T) {
	f := &fakeOBS{streaming: true}
	tr := newTestTransmitter(t, f, "")

	require.NoError(t, tr.StartOrJoin(context.Background()))
	assert.Equal(t, []string{"GetStreamStatus"}, f.requestTypes())
}

func TestTransmitter_Authenticates(t *testing.T) {
	f := &fakeOBS{password: "hunter2"}
	tr := newTestTransmitter(t, f, "hunter2")

	require.NoError(t, tr.StartOrJoin(context.Background()))
	assert.Len(t, f.requestTypes(), 2)
}

func TestTransmitter_WrongPassword(t *testing.T) {
	f := &fakeOBS{password: "hunter2"}
	tr := newTestTransmitter(t, f, "wrong")

	err := tr.StartOrJoin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identify rejected")
	assert.Empty(t, f.requestTypes())
}

func TestTransmitter_MissingPassword(t *testing.T) {
	f := &fakeOBS{password: "hunter2"}
	tr := newTestTransmitter(t, f, "")

	assert.ErrorIs(t, tr.StartOrJoin(context.Background()), ErrAuthRequired)
}

func TestTransmitter_RequestFailure(t *testing.T) {
	f := &fakeOBS{failStart: true}
	tr := newTestTransmitter(t, f, "")

	err := tr.StartOrJoin(context.Background())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "StartStream", reqErr.RequestType)
	assert.Equal(t, 500, reqErr.Code)
}

func TestTransmitter_CancelUnblocksCall(t *testing.T) {
	f := &fakeOBS{stall: true}
	tr := newTestTransmitter(t, f, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := tr.StartOrJoin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthResponse(t *testing.T) {
	// Same inputs always yield the same digest; different salts differ.
	a := authResponse("pw", "salt", "challenge")
	assert.Equal(t, a, authResponse("pw", "salt", "challenge"))
	assert.NotEqual(t, a, authResponse("pw", "other", "challenge"))

	var decoded []byte
	require.NoError(t, json.Unmarshal([]byte(`"`+a+`"`), &decoded))
	assert.Len(t, decoded, 32)
}
