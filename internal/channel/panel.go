package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/model"
)

// PanelChannel posts through a paid panel API. The account secret is the
// panel API key; login exchanges it for a short-lived bearer token which
// is cached as session material.
type PanelChannel struct {
	endpoint string
	budget   time.Duration
	client   *http.Client
}

type panelSession struct {
	AccountID string `json:"accountId"`
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issuedAt"`
}

func (s *panelSession) Material() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func (s *panelSession) Close() error { return nil }

func NewPanelChannel(endpoint string, budget time.Duration) *PanelChannel {
	return &PanelChannel{
		endpoint: endpoint,
		budget:   budget,
		client:   &http.Client{},
	}
}

func (c *PanelChannel) Kind() model.ChannelKind { return model.ChannelKindPanel }

func (c *PanelChannel) Budget() time.Duration { return c.budget }

func (c *PanelChannel) Login(ctx context.Context, account *model.ExecutionAccount) (Session, error) {
	if account.HasFreshSession(sessionMaxAge) {
		var sess panelSession
		if err := json.Unmarshal(*account.SessionData, &sess); err == nil && sess.Token != "" {
			// A token can be revoked server-side well inside the freshness
			// window; trusting it blind would turn a credential failure
			// into a post failure downstream.
			if c.verifyToken(ctx, sess.Token) {
				log.Debug().Str("accountId", account.ID).Msg("panel session restored from cache")
				return &sess, nil
			}
			log.Debug().Str("accountId", account.ID).Msg("cached panel token rejected, performing fresh auth")
		}
	}

	body, _ := json.Marshal(map[string]string{
		"key": account.Secret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v2/auth", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("panel auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("panel auth: status %d: %s", resp.StatusCode, data)
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if authResp.Token == "" {
		return nil, fmt.Errorf("panel auth: empty token")
	}

	return &panelSession{
		AccountID: account.ID,
		Token:     authResp.Token,
		IssuedAt:  time.Now().Unix(),
	}, nil
}

// verifyToken checks a restored bearer token with a cheap
// authenticated call.
func (c *PanelChannel) verifyToken(ctx context.Context, token string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v2/balance", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *PanelChannel) Post(ctx context.Context, session Session, targetURL, text string) (*PostResult, error) {
	sess, ok := session.(*panelSession)
	if !ok {
		return nil, fmt.Errorf("panel post: unexpected session type %T", session)
	}

	body, _ := json.Marshal(map[string]string{
		"action":  "comment",
		"link":    targetURL,
		"comment": text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v2/order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("panel order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("panel order rejected: status %d: %s", resp.StatusCode, data)
	}

	var orderResp struct {
		OrderID json.Number `json:"order"`
		Error   string      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if orderResp.Error != "" {
		return nil, fmt.Errorf("panel order rejected: %s", orderResp.Error)
	}

	return &PostResult{ExternalRef: orderResp.OrderID.String()}, nil
}
