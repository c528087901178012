package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/model"
)

// ProxyAPIChannel logs into the target platform's private API with stored
// credentials, routed through the account's proxy. The session cookie is
// cached so later runs can skip the login round trip.
type ProxyAPIChannel struct {
	endpoint string
	budget   time.Duration
}

type proxySession struct {
	AccountID string `json:"accountId"`
	Cookie    string `json:"cookie"`
	CSRFToken string `json:"csrfToken"`
	IssuedAt  int64  `json:"issuedAt"`

	client *http.Client
}

func (s *proxySession) Material() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func (s *proxySession) Close() error { return nil }

func NewProxyAPIChannel(endpoint string, budget time.Duration) *ProxyAPIChannel {
	return &ProxyAPIChannel{
		endpoint: endpoint,
		budget:   budget,
	}
}

func (c *ProxyAPIChannel) Kind() model.ChannelKind { return model.ChannelKindProxyAPI }

func (c *ProxyAPIChannel) Budget() time.Duration { return c.budget }

// clientFor builds an HTTP client routed through the account's proxy.
func clientFor(account *model.ExecutionAccount) (*http.Client, error) {
	transport := &http.Transport{}
	if account.ProxyURL != nil && *account.ProxyURL != "" {
		proxyURL, err := url.Parse(*account.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}, nil
}

func (c *ProxyAPIChannel) Login(ctx context.Context, account *model.ExecutionAccount) (Session, error) {
	client, err := clientFor(account)
	if err != nil {
		return nil, err
	}

	if account.HasFreshSession(sessionMaxAge) {
		var sess proxySession
		if err := json.Unmarshal(*account.SessionData, &sess); err == nil && sess.Cookie != "" {
			sess.client = client
			if c.verifySession(ctx, &sess) {
				log.Debug().Str("accountId", account.ID).Msg("proxy session restored from cache")
				return &sess, nil
			}
			log.Debug().Str("accountId", account.ID).Msg("cached proxy session stale, performing fresh login")
		}
	}

	body, _ := json.Marshal(map[string]string{
		"username": account.Identity,
		"password": account.Secret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("proxy login: status %d: %s", resp.StatusCode, data)
	}

	var loginResp struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	cookie := ""
	for _, ck := range resp.Cookies() {
		if ck.Name == "session" {
			cookie = ck.Value
		}
	}
	if cookie == "" {
		return nil, fmt.Errorf("proxy login: no session cookie returned")
	}

	return &proxySession{
		AccountID: account.ID,
		Cookie:    cookie,
		CSRFToken: loginResp.CSRFToken,
		IssuedAt:  time.Now().Unix(),
		client:    client,
	}, nil
}

// verifySession checks a restored session with a cheap authenticated call.
func (c *ProxyAPIChannel) verifySession(ctx context.Context, sess *proxySession) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/me", nil)
	if err != nil {
		return false
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: sess.Cookie})

	resp, err := sess.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *ProxyAPIChannel) Post(ctx context.Context, session Session, targetURL, text string) (*PostResult, error) {
	sess, ok := session.(*proxySession)
	if !ok {
		return nil, fmt.Errorf("proxy post: unexpected session type %T", session)
	}

	body, _ := json.Marshal(map[string]string{
		"target": targetURL,
		"text":   text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/comments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", sess.CSRFToken)
	req.AddCookie(&http.Cookie{Name: "session", Value: sess.Cookie})

	resp, err := sess.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("proxy comment rejected: status %d: %s", resp.StatusCode, data)
	}

	var commentResp struct {
		ID        string `json:"id"`
		Permalink string `json:"permalink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commentResp); err != nil {
		return nil, fmt.Errorf("decode comment response: %w", err)
	}

	ref := commentResp.Permalink
	if ref == "" {
		ref = commentResp.ID
	}
	return &PostResult{ExternalRef: ref}, nil
}
