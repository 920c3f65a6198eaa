// Package obs starts the shared video transmission through obs-websocket
// (protocol v5). Every StartOrJoin opens its own connection, identifies,
// and issues the requests it needs; there is no long-lived session.
package obs

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bft-labs/golive/internal/ports"
)

// DefaultURL is the obs-websocket default listen address.
const DefaultURL = "ws://127.0.0.1:4455"

const rpcVersion = 1

// Message op codes.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opRequest         = 6
	opRequestResponse = 7
)

// Config holds the obs-websocket connection settings.
type Config struct {
	URL      string
	Password string

	// Timeout bounds one StartOrJoin call when ctx has no deadline.
	Timeout time.Duration
}

// Transmitter implements ports.Transmitter.
type Transmitter struct {
	cfg    Config
	dialer *websocket.Dialer
	logger ports.Logger
}

// New creates an OBS transmitter.
func New(cfg Config, logger ports.Logger) *Transmitter {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Transmitter{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.Timeout},
		logger: logger,
	}
}

// RequestError is a request OBS answered with a failed status.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("obs %s failed (code %d): %s", e.RequestType, e.Code, e.Comment)
}

// ErrAuthRequired is returned when OBS asks for a password and none is configured.
var ErrAuthRequired = errors.New("obs: authentication required")

type message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type hello struct {
	RPCVersion     int `json:"rpcVersion"`
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type identify struct {
	RPCVersion     int    `json:"rpcVersion"`
	Authentication string `json:"authentication,omitempty"`
}

type request struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
}

type requestResponse struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

type streamStatus struct {
	OutputActive bool `json:"outputActive"`
}

// StartOrJoin starts streaming unless OBS is already streaming, in which
// case the running output is joined.
func (t *Transmitter) StartOrJoin(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock reads and writes when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	raw, err := t.call(conn, "GetStreamStatus")
	if err != nil {
		return t.wrap(ctx, err)
	}
	var status streamStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("decode stream status: %w", err)
	}
	if status.OutputActive {
		t.logger.Info("obs already streaming, joining")
		return nil
	}

	if _, err := t.call(conn, "StartStream"); err != nil {
		return t.wrap(ctx, err)
	}
	t.logger.Info("obs stream started")
	return nil
}

func (t *Transmitter) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return nil, t.wrap(ctx, fmt.Errorf("dial obs: %w", err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := t.identify(conn); err != nil {
		conn.Close()
		return nil, t.wrap(ctx, err)
	}
	return conn, nil
}

func (t *Transmitter) identify(conn *websocket.Conn) error {
	var h hello
	if err := readOp(conn, opHello, &h); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}

	id := identify{RPCVersion: rpcVersion}
	if h.Authentication != nil {
		if t.cfg.Password == "" {
			return ErrAuthRequired
		}
		id.Authentication = authResponse(t.cfg.Password, h.Authentication.Salt, h.Authentication.Challenge)
	}
	if err := writeOp(conn, opIdentify, id); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	// OBS closes the connection on bad credentials.
	if err := readOp(conn, opIdentified, nil); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return fmt.Errorf("identify rejected: %s (code %d)", ce.Text, ce.Code)
		}
		return fmt.Errorf("read identified: %w", err)
	}
	return nil
}

// call sends one request and waits for its response, skipping events.
func (t *Transmitter) call(conn *websocket.Conn, requestType string) (json.RawMessage, error) {
	req := request{RequestType: requestType, RequestID: uuid.NewString()}
	if err := writeOp(conn, opRequest, req); err != nil {
		return nil, fmt.Errorf("send %s: %w", requestType, err)
	}

	for {
		var resp requestResponse
		if err := readOp(conn, opRequestResponse, &resp); err != nil {
			return nil, fmt.Errorf("read %s response: %w", requestType, err)
		}
		if resp.RequestID != req.RequestID {
			continue
		}
		if !resp.RequestStatus.Result {
			return nil, &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		return resp.ResponseData, nil
	}
}

// wrap reports ctx's error instead of the closed-connection error it caused.
func (t *Transmitter) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// readOp reads messages until one with the wanted op arrives and decodes its
// payload into v (when non-nil).
func readOp(conn *websocket.Conn, op int, v any) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Op != op {
			continue
		}
		if v == nil {
			return nil
		}
		return json.Unmarshal(msg.D, v)
	}
}

func writeOp(conn *websocket.Conn, op int, v any) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteJSON(message{Op: op, D: d})
}

// authResponse computes the obs-websocket authentication string:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}
