package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the manager uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// DialFunc opens a websocket to url
type DialFunc func(ctx context.Context, url string) (Conn, error)

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Dial opens a gorilla websocket connection
func Dial(ctx context.Context, u string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}

// SocketURL derives the live connection URL for a session from the backend's
// HTTP base URL: http://host -> ws://host/ws/<id>, https -> wss.
func SocketURL(baseURL, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	return u.JoinPath("ws", sessionID).String(), nil
}

// closeCode extracts the websocket close code from a read error. Anything that
// is not a close frame counts as an abnormal closure.
func closeCode(err error) (code int, transport bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, false
	}
	return websocket.CloseAbnormalClosure, true
}

// closeGracefully sends a normal close frame and closes the connection
func closeGracefully(conn Conn) {
	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
