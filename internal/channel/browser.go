package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/model"
)

// BrowserChannel drives a real browser through the target platform's web
// UI. Each login launches a dedicated browser routed through the account's
// proxy; the browser is torn down on every exit path via Session.Close.
type BrowserChannel struct {
	loginURL string
	headless bool
	binPath  string
	budget   time.Duration
}

type browserSession struct {
	accountID string
	cookies   []*proto.NetworkCookieParam

	browser *rod.Browser
	cleanup func()
}

func (s *browserSession) Material() json.RawMessage {
	data, _ := json.Marshal(s.cookies)
	return data
}

func (s *browserSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	return err
}

func NewBrowserChannel(loginURL string, headless bool, binPath string, budget time.Duration) *BrowserChannel {
	return &BrowserChannel{
		loginURL: loginURL,
		headless: headless,
		binPath:  binPath,
		budget:   budget,
	}
}

func (c *BrowserChannel) Kind() model.ChannelKind { return model.ChannelKindBrowser }

func (c *BrowserChannel) Budget() time.Duration { return c.budget }

func (c *BrowserChannel) launch(account *model.ExecutionAccount) (*rod.Browser, func(), error) {
	l := launcher.New().Headless(c.headless)
	if c.binPath != "" {
		l = l.Bin(c.binPath)
	}
	if account.ProxyURL != nil && *account.ProxyURL != "" {
		l = l.Proxy(*account.ProxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("connect to browser: %w", err)
	}

	return browser, l.Cleanup, nil
}

func (c *BrowserChannel) Login(ctx context.Context, account *model.ExecutionAccount) (Session, error) {
	browser, cleanup, err := c.launch(account)
	if err != nil {
		return nil, err
	}

	sess := &browserSession{
		accountID: account.ID,
		browser:   browser,
		cleanup:   cleanup,
	}

	ok, err := c.doLogin(ctx, sess, account)
	if err != nil || !ok {
		_ = sess.Close()
		if err == nil {
			err = fmt.Errorf("browser login: credentials rejected")
		}
		return nil, err
	}

	return sess, nil
}

func (c *BrowserChannel) doLogin(ctx context.Context, sess *browserSession, account *model.ExecutionAccount) (bool, error) {
	browser := sess.browser.Context(ctx)

	// First try restoring the cached cookie jar, then verify it still
	// authenticates before falling back to a credential login.
	if account.SessionData != nil {
		var cookies []*proto.NetworkCookieParam
		if err := json.Unmarshal(*account.SessionData, &cookies); err == nil && len(cookies) > 0 {
			if err := browser.SetCookies(cookies); err == nil {
				if c.verifyLoggedIn(ctx, browser) {
					log.Debug().Str("accountId", account.ID).Msg("browser session restored from cached cookies")
					sess.cookies = cookies
					return true, nil
				}
				log.Debug().Str("accountId", account.ID).Msg("cached browser cookies stale, performing fresh login")
			}
		}
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: c.loginURL})
	if err != nil {
		return false, fmt.Errorf("open login page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return false, fmt.Errorf("load login page: %w", err)
	}

	userField, err := page.Element(`input[name="username"], input[type="email"]`)
	if err != nil {
		return false, fmt.Errorf("find username field: %w", err)
	}
	if err := userField.Input(account.Identity); err != nil {
		return false, fmt.Errorf("fill username: %w", err)
	}

	passField, err := page.Element(`input[type="password"]`)
	if err != nil {
		return false, fmt.Errorf("find password field: %w", err)
	}
	if err := passField.Input(account.Secret); err != nil {
		return false, fmt.Errorf("fill password: %w", err)
	}

	submit, err := page.Element(`button[type="submit"]`)
	if err != nil {
		return false, fmt.Errorf("find submit button: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("submit login form: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return false, fmt.Errorf("wait for post-login load: %w", err)
	}

	if !c.verifyLoggedIn(ctx, browser) {
		return false, nil
	}

	raw, err := browser.GetCookies()
	if err == nil {
		sess.cookies = make([]*proto.NetworkCookieParam, 0, len(raw))
		for _, ck := range raw {
			sess.cookies = append(sess.cookies, &proto.NetworkCookieParam{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: ck.SameSite,
			})
		}
	}

	return true, nil
}

// verifyLoggedIn opens the platform home page and checks for an element
// only present for authenticated users.
func (c *BrowserChannel) verifyLoggedIn(ctx context.Context, browser *rod.Browser) bool {
	page, err := browser.Page(proto.TargetCreateTarget{URL: c.loginURL})
	if err != nil {
		return false
	}
	defer page.Close()

	if err := page.Context(ctx).WaitLoad(); err != nil {
		return false
	}

	has, _, err := page.Has(`[data-logged-in], a[href*="logout"], button[aria-label="Account menu"]`)
	return err == nil && has
}

func (c *BrowserChannel) Post(ctx context.Context, session Session, targetURL, text string) (*PostResult, error) {
	sess, ok := session.(*browserSession)
	if !ok {
		return nil, fmt.Errorf("browser post: unexpected session type %T", session)
	}
	if sess.browser == nil {
		return nil, fmt.Errorf("browser post: session already closed")
	}

	browser := sess.browser.Context(ctx)

	page, err := browser.Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		return nil, fmt.Errorf("open target page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("load target page: %w", err)
	}

	box, err := page.Element(`textarea[name="comment"], div[contenteditable="true"], textarea`)
	if err != nil {
		return nil, fmt.Errorf("find comment box: %w", err)
	}
	if err := box.Input(text); err != nil {
		return nil, fmt.Errorf("type comment: %w", err)
	}

	submit, err := page.Element(`button[type="submit"], button[data-action="comment"]`)
	if err != nil {
		return nil, fmt.Errorf("find comment submit: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("submit comment: %w", err)
	}

	// The platform rewrites the URL with a comment anchor on success; the
	// final URL doubles as the external reference.
	if err := page.WaitStable(time.Second); err != nil {
		return nil, fmt.Errorf("wait for comment to settle: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("read result page info: %w", err)
	}

	return &PostResult{ExternalRef: info.URL}, nil
}
