package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"e2estore/internal/cryptocore"
	"e2estore/internal/dto"
	"e2estore/internal/notify"
	"e2estore/internal/opauth"
	"e2estore/internal/service"
	"e2estore/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	svc := service.New(testutil.OpenStore(t), notify.NewHub(0))
	srv := httptest.NewServer(NewRouter(svc, opts))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, header http.Header) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func publicKey(t *testing.T) string {
	t.Helper()
	kp, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	return kp.PublicKey
}

func TestCustomerEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/customers", dto.RegisterCustomerRequest{PublicKey: publicKey(t), AuthAccountID: "acct"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.CustomerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.AuthAccountID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/customers?auth_account_id=acct", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found dto.CustomerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	require.Equal(t, created.ID, found.ID)

	next := publicKey(t)
	resp = doJSON(t, http.MethodPut, srv.URL+"/v1/customers/"+created.ID+"/public-key", dto.PublicKeyBody{PublicKey: next}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/customers/"+created.ID+"/public-key", nil, nil)
	var key dto.PublicKeyBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&key))
	require.Equal(t, next, key.PublicKey)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad key", http.MethodPost, "/v1/customers", dto.RegisterCustomerRequest{PublicKey: "junk"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/customers", map[string]string{"pub": "x"}, http.StatusBadRequest},
		{"bad uuid", http.MethodGet, "/v1/customers/nope/public-key", nil, http.StatusBadRequest},
		{"unknown customer", http.MethodGet, "/v1/customers/" + uuid.NewString() + "/public-key", nil, http.StatusNotFound},
		{"no operator yet", http.MethodGet, "/v1/operator/public-key", nil, http.StatusNotFound},
		{"unknown conversation", http.MethodGet, "/v1/conversations/" + uuid.NewString() + "/records", nil, http.StatusNotFound},
		{"unknown auth account", http.MethodGet, "/v1/customers?auth_account_id=ghost", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, tc.method, srv.URL+tc.path, tc.body, nil)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestOperatorKeyRequiresToken(t *testing.T) {
	priv, pub, err := opauth.GenerateKey()
	require.NoError(t, err)
	signer, err := opauth.NewFromBase64(priv, "", "")
	require.NoError(t, err)
	validator, err := opauth.NewValidator(pub, "")
	require.NoError(t, err)

	srv := newTestServer(t, Options{OperatorAuth: validator.Middleware})
	body := dto.PublicKeyBody{PublicKey: publicKey(t)}

	resp := doJSON(t, http.MethodPut, srv.URL+"/v1/operator/public-key", body, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := signer.Sign("ops", time.Minute)
	require.NoError(t, err)
	resp = doJSON(t, http.MethodPut, srv.URL+"/v1/operator/public-key", body, http.Header{"Authorization": {"Bearer " + tok}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/operator/public-key", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = doJSON(t, http.MethodGet, srv.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventsRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigins: []string{"https://shop.example"}})

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/customers", dto.RegisterCustomerRequest{PublicKey: publicKey(t)}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cust dto.CustomerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cust))

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/conversations", dto.OpenConversationRequest{CustomerID: cust.ID, Kind: "support"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conv dto.ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/conversations/" + conv.ID + "/events"
	dial := func(origin string) error {
		cfg, err := websocket.NewConfig(wsURL, origin)
		require.NoError(t, err)
		conn, err := websocket.DialConfig(cfg)
		if err == nil {
			_ = conn.Close()
		}
		return err
	}

	require.Error(t, dial("https://evil.example"))
	require.NoError(t, dial("https://shop.example"))
	require.NoError(t, dial(srv.URL))
}
