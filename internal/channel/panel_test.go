package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type panelBackend struct {
	authCalls    int
	balanceCalls int
	validToken   string
}

func (b *panelBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/auth", func(w http.ResponseWriter, r *http.Request) {
		b.authCalls++
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	})
	mux.HandleFunc("/v2/balance", func(w http.ResponseWriter, r *http.Request) {
		b.balanceCalls++
		if r.Header.Get("Authorization") != "Bearer "+b.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"balance": "10.00"})
	})
	return mux
}

func panelAccount(t *testing.T, cachedToken string) *model.ExecutionAccount {
	t.Helper()
	material, err := json.Marshal(panelSession{
		AccountID: "acc-1",
		Token:     cachedToken,
		IssuedAt:  time.Now().Unix(),
	})
	require.NoError(t, err)
	raw := json.RawMessage(material)
	refreshed := time.Now().Add(-time.Hour)
	return &model.ExecutionAccount{
		ID:                 "acc-1",
		Channel:            model.ChannelKindPanel,
		Identity:           "panel-account",
		Secret:             "api-key-1",
		Active:             true,
		SessionData:        &raw,
		SessionRefreshedAt: &refreshed,
	}
}

func TestPanelLogin(t *testing.T) {
	t.Run("restores a cached token that still verifies", func(t *testing.T) {
		backend := &panelBackend{validToken: "cached-token"}
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		c := NewPanelChannel(srv.URL, 8*time.Second)
		sess, err := c.Login(context.Background(), panelAccount(t, "cached-token"))

		require.NoError(t, err)
		assert.Equal(t, "cached-token", sess.(*panelSession).Token)
		assert.Equal(t, 1, backend.balanceCalls)
		assert.Equal(t, 0, backend.authCalls)
	})

	t.Run("re-authenticates when the cached token is rejected server-side", func(t *testing.T) {
		backend := &panelBackend{validToken: "some-other-token"}
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		c := NewPanelChannel(srv.URL, 8*time.Second)
		sess, err := c.Login(context.Background(), panelAccount(t, "revoked-token"))

		require.NoError(t, err)
		assert.Equal(t, "fresh-token", sess.(*panelSession).Token)
		assert.Equal(t, 1, backend.authCalls)
	})

	t.Run("logs in from scratch without cached material", func(t *testing.T) {
		backend := &panelBackend{}
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		account := panelAccount(t, "")
		account.SessionData = nil
		account.SessionRefreshedAt = nil

		c := NewPanelChannel(srv.URL, 8*time.Second)
		sess, err := c.Login(context.Background(), account)

		require.NoError(t, err)
		assert.Equal(t, "fresh-token", sess.(*panelSession).Token)
		assert.Equal(t, 0, backend.balanceCalls)
	})
}
