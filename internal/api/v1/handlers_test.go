package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ovpnconf/api/types"
	"ovpnconf/internal/app"
	"ovpnconf/internal/logbuffer"
	"ovpnconf/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientIntent = `
interfaces:
  openvpn:
    vtun0:
      mode: client
      remote-host: [198.51.100.1]
      tls:
        ca-cert-file: /nonexistent/ca.pem
        cert-file: /nonexistent/c.pem
        key-file: /nonexistent/c.key
    vtun1:
      mode: client
      tls:
        ca-cert-file: /nonexistent/ca.pem
  bridge:
    br0:
      member:
        interface: [vtun5]
`

func newServer(t *testing.T) (*httptest.Server, *logbuffer.RingBuffer) {
	t.Helper()
	paths := models.Paths{
		ConfigDir:        "/etc/openvpn",
		RunDir:           "/run/openvpn",
		TmpDir:           "/tmp",
		ManagementSocket: "/tmp/openvpn-mgmt-intf",
		User:             "openvpn",
		Group:            "openvpn",
	}
	logs := logbuffer.NewRingBuffer(10)
	a := app.New(paths, app.WithLogger(zerolog.Nop()))
	srv := httptest.NewServer(NewRouter(NewHandler(a, logs)))
	t.Cleanup(srv.Close)
	return srv, logs
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, []byte) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func TestValidate(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name   string
		intf   string
		status int
		want   types.ValidateRes
	}{
		{"valid", "vtun0", http.StatusOK, types.ValidateRes{Interface: "vtun0", Valid: true}},
		{"failure", "vtun1", http.StatusUnprocessableEntity, types.ValidateRes{
			Interface: "vtun1",
			Rule:      "client-remote-host",
			Message:   `Must specify "remote-host" in client mode`,
		}},
		{"deleted", "vtun9", http.StatusOK, types.ValidateRes{Interface: "vtun9", Valid: true, Deleted: true}},
		{"deleted bridge member", "vtun5", http.StatusUnprocessableEntity, types.ValidateRes{
			Interface: "vtun5",
			Rule:      "deleted-bridge-member",
			Message:   "Can not delete vtun5 as it is a member interface of bridge br0!",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/v1/validate", types.IntentReq{Intent: clientIntent, Interface: tt.intf})
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			var got types.ValidateRes
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_BadRequests(t *testing.T) {
	srv, _ := newServer(t)

	for name, body := range map[string]any{
		"no interface":  types.IntentReq{Intent: clientIntent},
		"broken yaml":   types.IntentReq{Intent: "interfaces: [", Interface: "vtun0"},
		"invalid value": types.IntentReq{Intent: "interfaces:\n  openvpn:\n    vtun0:\n      mode: bridge\n", Interface: "vtun0"},
		"unknown field": map[string]string{"yaml": clientIntent},
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := post(t, srv, "/v1/validate", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var got types.ErrorRes
			require.NoError(t, json.Unmarshal(body, &got))
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestRender(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := post(t, srv, "/v1/render", types.IntentReq{Intent: clientIntent, Interface: "vtun0"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got types.RenderRes
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "vtun0", got.Interface)
	assert.Contains(t, got.Main, "client\n")
	assert.Contains(t, got.Main, "remote 198.51.100.1\n")
	assert.Empty(t, got.Clients)

	resp, body = post(t, srv, "/v1/render", types.IntentReq{Intent: clientIntent, Interface: "vtun9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = types.RenderRes{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Deleted)
	assert.Empty(t, got.Main)

	resp, _ = post(t, srv, "/v1/render", types.IntentReq{Intent: clientIntent, Interface: "vtun1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestListInstances(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := post(t, srv, "/v1/instances", types.IntentReq{Intent: clientIntent})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got types.InstancesRes
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"vtun0", "vtun1"}, got.Instances)
}

func TestGetCiphers(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/ciphers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got types.CiphersRes
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got.Ciphers, "aes256gcm")
}

func TestGetLogs(t *testing.T) {
	srv, logs := newServer(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	logs.Add(logbuffer.LogEntry{Time: now, Level: "info", Message: "tunnel applied", Interface: "vtun0"})
	logs.Add(logbuffer.LogEntry{Time: now, Level: "warn", Message: "interface did not appear after daemon start", Interface: "vtun1"})

	resp, err := http.Get(srv.URL + "/v1/logs?level=warn")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got types.LogsRes
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []types.LogRes{{
		Time:      "2024-05-01T10:00:00Z",
		Level:     "warn",
		Message:   "interface did not appear after daemon start",
		Interface: "vtun1",
	}}, got.Logs)

	resp, err = http.Get(srv.URL + "/v1/logs?limit=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
