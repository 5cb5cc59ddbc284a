package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(sharedConfig.PanelConfig{
		BaseURL:   baseURL,
		Username:  "admin",
		Password:  "secret",
		InboundID: 1,
	}, logger.NewLogger())
	require.NoError(t, err)
	return c
}

func loginOK(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func TestClient_CreateCredential_FallbackStopsAtFirstSuccess(t *testing.T) {
	var attempts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			loginOK(w)
			return
		}
		attempts = append(attempts, r.URL.Path)
		switch r.URL.Path {
		case "/panel/inbound/addClient", "/panel/inbounds/addClient":
			w.WriteHeader(http.StatusNotFound)
		case "/api/inbound/addClient":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "1", r.FormValue("id"))

			var settings clientSettings
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("settings")), &settings))
			require.Len(t, settings.Clients, 1)
			assert.Equal(t, "@alice", settings.Clients[0].Email)
			assert.True(t, settings.Clients[0].Enable)
			assert.NotEmpty(t, settings.Clients[0].ID)
			assert.NotContains(t, settings.Clients[0].SubID, "-")

			json.NewEncoder(w).Encode(map[string]any{"success": true})
		default:
			t.Fatalf("unexpected path after success: %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	expiresAt := time.Now().UTC().Add(72 * time.Hour)

	cred, err := c.CreateCredential(context.Background(), "@alice", expiresAt)
	require.NoError(t, err)
	assert.NotEmpty(t, cred.SubID)
	assert.Equal(t, expiresAt, cred.ExpiresAt)

	assert.Equal(t, []string{
		"/panel/inbound/addClient",
		"/panel/inbounds/addClient",
		"/api/inbound/addClient",
	}, attempts)
}

func TestClient_CreateCredential_NonNotFoundStopsFallback(t *testing.T) {
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			loginOK(w)
			return
		}
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.CreateCredential(context.Background(), "@alice", time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestClient_CreateCredential_AllVariantsNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			loginOK(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.CreateCredential(context.Background(), "@alice", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrEndpointNotFound)
}

func TestClient_CreateCredential_PanelReportsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			loginOK(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": false, "msg": "duplicate email"})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.CreateCredential(context.Background(), "@alice", time.Now().Add(time.Hour))

	var provErr *ProvisioningError
	require.True(t, errors.As(err, &provErr))
	assert.Contains(t, provErr.Message, "duplicate email")
}

func TestClient_CreateCredential_ErrorStatusCarriesPanelMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			loginOK(w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "msg": "database is locked"})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.CreateCredential(context.Background(), "@alice", time.Now().Add(time.Hour))

	var provErr *ProvisioningError
	require.True(t, errors.As(err, &provErr))
	assert.Contains(t, provErr.Message, "status 500")
	assert.Contains(t, provErr.Message, "database is locked")
}

func TestClient_LogsInPerOperation(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour).UnixMilli()
	var logins int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			logins++
			loginOK(w)
			return
		}
		settings := fmt.Sprintf(`{"clients":[{"email":"@alice","enable":true,"expiryTime":%d,"subId":"abc"}]}`, future)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "obj": []map[string]any{{
			"id":       1,
			"settings": settings,
		}}})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, _, err := c.FindCredential(ctx, "@alice")
	require.NoError(t, err)
	_, _, err = c.FindCredential(ctx, "@alice")
	require.NoError(t, err)

	// A panel-side session timeout must never strand the client, so every
	// operation starts with a fresh login.
	assert.Equal(t, 2, logins)
}

func TestClient_Authenticate_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "msg": "bad credentials"})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClient_FindCredential(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour).UnixMilli()

	listResponse := func(payload any) []byte {
		b, _ := json.Marshal(map[string]any{"success": true, "obj": payload})
		return b
	}

	settingsJSON := func(clients ...map[string]any) string {
		b, _ := json.Marshal(map[string]any{"clients": clients})
		return string(b)
	}

	tests := []struct {
		name      string
		body      []byte
		wantFound bool
		wantSubID string
	}{
		{
			name: "bare array with string settings",
			body: listResponse([]map[string]any{{
				"id":       1,
				"settings": settingsJSON(map[string]any{"email": "@alice", "enable": true, "expiryTime": future, "subId": "abc123"}),
			}}),
			wantFound: true,
			wantSubID: "abc123",
		},
		{
			name: "list wrapper with inline settings object",
			body: func() []byte {
				b, _ := json.Marshal(map[string]any{"success": true, "data": map[string]any{
					"list": []map[string]any{{
						"id": 1,
						"settings": map[string]any{"clients": []map[string]any{
							{"email": "@alice", "enable": true, "expiryTime": future, "sub_id": "under123"},
						}},
					}},
				}})
				return b
			}(),
			wantFound: true,
			wantSubID: "under123",
		},
		{
			name: "missing subId is not usable",
			body: listResponse([]map[string]any{{
				"id":       1,
				"settings": settingsJSON(map[string]any{"email": "@alice", "enable": true, "expiryTime": future}),
			}}),
			wantFound: false,
		},
		{
			name: "disabled client is not usable",
			body: listResponse([]map[string]any{{
				"id":       1,
				"settings": settingsJSON(map[string]any{"email": "@alice", "enable": false, "expiryTime": future, "subId": "abc"}),
			}}),
			wantFound: false,
		},
		{
			name: "other inbound is ignored",
			body: listResponse([]map[string]any{{
				"id":       7,
				"settings": settingsJSON(map[string]any{"email": "@alice", "enable": true, "expiryTime": future, "subId": "abc"}),
			}}),
			wantFound: false,
		},
		{
			name: "malformed settings yields no match",
			body: listResponse([]map[string]any{{
				"id":       1,
				"settings": "{not json",
			}}),
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/login" {
					loginOK(w)
					return
				}
				w.Write(tt.body)
			}))
			defer ts.Close()

			c := newTestClient(t, ts.URL)
			cred, found, err := c.FindCredential(context.Background(), "@alice")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantSubID, cred.SubID)
			}
		})
	}
}

func TestClient_SubscriptionLink(t *testing.T) {
	log := logger.NewLogger()

	withSubURL, err := NewClient(sharedConfig.PanelConfig{
		BaseURL: "https://panel.example.com:2053/xui",
		SubURL:  "https://sub.example.com",
	}, log)
	require.NoError(t, err)
	assert.Equal(t, "https://sub.example.com/sub/abc", withSubURL.SubscriptionLink("abc"))

	withoutSubURL, err := NewClient(sharedConfig.PanelConfig{
		BaseURL: "https://panel.example.com:2053/xui",
	}, log)
	require.NoError(t, err)
	assert.Equal(t, "https://panel.example.com:2053/xui/sub/abc", withoutSubURL.SubscriptionLink("abc"))
}

func TestClient_BasePathFromBaseURL(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		loginOK(w)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(t, ts.URL+"/mypanel")
	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, "/mypanel/login", gotPath)
}
