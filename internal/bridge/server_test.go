package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/cdmctl/internal/auth"
	"github.com/danmuck/cdmctl/internal/cdm"
	"github.com/danmuck/cdmctl/internal/protocol/frame"
	"github.com/danmuck/cdmctl/internal/protocol/link"
	"github.com/danmuck/cdmctl/internal/testutil/linktest"
	"github.com/danmuck/cdmctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

type execFunc func(ctx context.Context, cmd cdm.Command, args ...byte) (cdm.Response, error)

func (f execFunc) Exec(ctx context.Context, cmd cdm.Command, args ...byte) (cdm.Response, error) {
	return f(ctx, cmd, args...)
}

func newDeviceBridge(t *testing.T, respond linktest.Responder) (*Bridge, *linktest.Port) {
	t.Helper()
	port := linktest.NewDevice(respond, linktest.WithHandshake())
	cfg := link.DefaultConfig()
	cfg.Path = "/dev/ttyBRIDGE"
	session := link.NewSession(cfg, link.WithOpener(func(link.Config) (link.Port, error) {
		return port, nil
	}))
	return Appear("bridge-test", ":0", cfg.Path, cdm.NewDispenser(session), []string{"http://localhost:3000"}), port
}

func serve(t *testing.T, b *Bridge, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	b.HTTPRouter().ServeHTTP(rr, req)
	out := map[string]any{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	b, _ := newDeviceBridge(t, func(p []byte) []byte { return linktest.Reply(p[0], 0x30) })

	rr, body := serve(t, b, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "/dev/ttyBRIDGE", body["device"])

	rr, _ = serve(t, b, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "cdmctl_http_requests_total")
}

func TestStatusRoute(t *testing.T) {
	testlog.Start(t)
	b, port := newDeviceBridge(t, func(p []byte) []byte {
		return linktest.Reply(p[0], 0x30, 0x12, 0x34)
	})

	rr, body := serve(t, b, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "read_status", body["command"])
	require.Equal(t, "normal", body["status"])
	require.Equal(t, "0x30", body["status_code"])
	require.Equal(t, true, body["ok"])
	require.Equal(t, "1234", body["data"])
	require.Len(t, port.Writes(), 3)
}

func TestInitializeReportsDeviceStatusWithoutFailing(t *testing.T) {
	testlog.Start(t)
	b, _ := newDeviceBridge(t, func(p []byte) []byte { return linktest.Reply(p[0], 0x66) })

	rr, body := serve(t, b, http.MethodPost, "/initialize", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "cassette 3 empty", body["status"])
	require.Equal(t, float64(3), body["cassette"])
}

func TestExecRoute(t *testing.T) {
	testlog.Start(t)
	var seen []byte
	b, _ := newDeviceBridge(t, func(p []byte) []byte {
		seen = append([]byte(nil), p...)
		return linktest.Reply(p[0], 0x30, 0x06)
	})

	rr, body := serve(t, b, http.MethodPost, "/exec", `{"command":"reject_log","args":["0x01","2"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []byte{0x43, 0x01, 0x02}, seen)
	require.Equal(t, []any{"double", "skew"}, body["rejects"])

	rr, _ = serve(t, b, http.MethodPost, "/exec", `{"command":"0x31"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []byte{0x31}, seen)
}

func TestExecRouteRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	b, port := newDeviceBridge(t, func(p []byte) []byte { return linktest.Reply(p[0], 0x30) })

	for _, body := range []string{
		`{}`,
		`{"command":"launch"}`,
		`{"command":"0x31","args":["0x100"]}`,
		`not json`,
	} {
		rr, _ := serve(t, b, http.MethodPost, "/exec", body)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	require.Empty(t, port.Writes())
}

func TestDeviceRoutesRequireToken(t *testing.T) {
	testlog.Start(t)
	b, port := newDeviceBridge(t, func(p []byte) []byte { return linktest.Reply(p[0], 0x30) })
	b.Auth = auth.StaticToken{Token: "s3cret"}

	rr, _ := serve(t, b, http.MethodPost, "/initialize", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, port.Writes())

	req := httptest.NewRequest(http.MethodPost, "/initialize", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	b.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/initialize", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	b.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	writes := len(port.Writes())
	rr, _ = serve(t, b, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Len(t, port.Writes(), writes, "an unauthorized status read must not touch the line")

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	b.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(t, b, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLinkErrorsMapToStatus(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		err  error
		code int
	}{
		{err: frame.ErrChecksumMismatch, code: http.StatusBadGateway},
		{err: cdm.ErrShortResponse, code: http.StatusBadGateway},
		{err: &cdm.EchoError{Command: cdm.CmdReadStatus, Echo: 0x33}, code: http.StatusBadGateway},
		{err: &link.TransportError{Op: link.OpOpen, Path: "/dev/x", Err: errors.New("busy")}, code: http.StatusServiceUnavailable},
		{err: frame.ErrPayloadTooLarge, code: http.StatusBadRequest},
		{err: context.DeadlineExceeded, code: http.StatusGatewayTimeout},
		{err: errors.New("other"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		b := Appear("bridge-err", ":0", "/dev/x", execFunc(func(context.Context, cdm.Command, ...byte) (cdm.Response, error) {
			return cdm.Response{}, tt.err
		}), nil)
		rr, body := serve(t, b, http.MethodGet, "/status", "")
		require.Equal(t, tt.code, rr.Code, tt.err.Error())
		require.Equal(t, "read_status", body["command"])
	}
}

func TestParseByte(t *testing.T) {
	testlog.Start(t)
	for raw, want := range map[string]byte{"0x30": 0x30, "48": 48, " 0b1 ": 1, "0o17": 15} {
		got, err := ParseByte(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseByte("256")
	require.Error(t, err)
}
