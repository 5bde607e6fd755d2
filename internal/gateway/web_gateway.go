package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"aigenflow/internal/logging"
)

// Config holds browser settings shared by all web gateways.
type Config struct {
	DebuggerURL         string `json:"debugger_url" yaml:"debugger_url"`
	Headless            bool   `json:"headless" yaml:"headless"`
	ViewportWidth       int    `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight      int    `json:"viewport_height" yaml:"viewport_height"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms" yaml:"navigation_timeout_ms"`
	SessionDir          string `json:"session_dir" yaml:"session_dir"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
	}
}

// NavigationTimeout returns the navigation timeout as a duration.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// WebGateway drives one provider's web UI through a headless browser.
// All calls are serialized; concurrent callers queue on the mutex.
type WebGateway struct {
	name      string
	cfg       Config
	selectors Selectors

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

// NewWebGateway creates a gateway for one provider tag.
func NewWebGateway(name string, cfg Config, selectors Selectors) *WebGateway {
	return &WebGateway{name: name, cfg: cfg, selectors: selectors}
}

// Name returns the provider tag.
func (g *WebGateway) Name() string {
	return g.name
}

// ensureStartedLocked connects to (or launches) Chrome and opens the chat
// page. Caller must hold g.mu.
func (g *WebGateway) ensureStartedLocked(ctx context.Context) error {
	if g.browser != nil {
		if _, err := g.browser.Version(); err == nil {
			return nil
		}
		logging.Gateway("%s: stale browser connection, reconnecting", g.name)
		_ = g.browser.Close()
		g.browser = nil
		g.page = nil
	}

	controlURL := g.cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(g.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	g.browser = browser

	if ok := g.loadSessionLocked(); ok {
		logging.GatewayDebug("%s: restored saved session cookies", g.name)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: g.selectors.URL})
	if err != nil {
		return fmt.Errorf("open %s: %w", g.selectors.URL, err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             g.cfg.ViewportWidth,
		Height:            g.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		logging.GatewayDebug("%s: viewport override failed: %v", g.name, err)
	}
	if err := page.Timeout(g.cfg.NavigationTimeout()).WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", g.selectors.URL, err)
	}
	g.page = page
	return nil
}

// SendMessage submits a prompt and scrapes the response. The request
// timeout bounds the whole interaction; cancellation of ctx aborts it.
func (g *WebGateway) SendMessage(ctx context.Context, req Request) (*Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timeout := req.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := g.ensureStartedLocked(ctx); err != nil {
		return failed(start, fmt.Errorf("%s gateway: %w", g.name, err)), nil
	}

	page := g.page.Context(ctx)

	editor, err := page.Element(g.selectors.Input)
	if err != nil {
		return failed(start, fmt.Errorf("%s: prompt input not found: %w", g.name, err)), nil
	}
	if err := editor.Input(req.Prompt); err != nil {
		return failed(start, fmt.Errorf("%s: type prompt: %w", g.name, err)), nil
	}

	if g.selectors.Submit != "" {
		submit, err := page.Element(g.selectors.Submit)
		if err != nil {
			return failed(start, fmt.Errorf("%s: submit button not found: %w", g.name, err)), nil
		}
		if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return failed(start, fmt.Errorf("%s: click submit: %w", g.name, err)), nil
		}
	} else {
		if err := editor.Type(input.Enter); err != nil {
			return failed(start, fmt.Errorf("%s: press enter: %w", g.name, err)), nil
		}
	}

	content, err := g.awaitResponse(ctx, page)
	if err != nil {
		return failed(start, fmt.Errorf("%s: response detection failed: %w", g.name, err)), nil
	}

	elapsed := time.Since(start).Seconds()
	logging.Gateway("%s: task=%s responded in %.1fs (%d chars)", g.name, req.TaskName, elapsed, len(content))
	return &Response{
		Content:      content,
		Success:      true,
		TokensUsed:   estimateTokens(content),
		ResponseTime: elapsed,
	}, nil
}

// awaitResponse waits for the assistant message to finish streaming. The
// busy indicator is preferred; otherwise the text must hold stable for two
// consecutive polls.
func (g *WebGateway) awaitResponse(ctx context.Context, page *rod.Page) (string, error) {
	if _, err := page.Element(g.selectors.Response); err != nil {
		return "", fmt.Errorf("no response element: %w", err)
	}

	const pollInterval = 500 * time.Millisecond
	var last string
	stable := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}

		if g.selectors.Busy != "" {
			if busy, _, _ := page.Has(g.selectors.Busy); busy {
				continue
			}
		}

		text, err := g.lastResponseText(page)
		if err != nil {
			continue
		}
		if text != "" && text == last {
			stable++
			if stable >= 2 {
				return strings.TrimSpace(text), nil
			}
		} else {
			stable = 0
		}
		last = text
	}
}

func (g *WebGateway) lastResponseText(page *rod.Page) (string, error) {
	elements, err := page.Elements(g.selectors.Response)
	if err != nil || len(elements) == 0 {
		return "", fmt.Errorf("no response blocks")
	}
	return elements[len(elements)-1].Text()
}

// CheckSession reports whether an authenticated session is active.
func (g *WebGateway) CheckSession(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureStartedLocked(ctx); err != nil {
		logging.GatewayDebug("%s: session check failed to start: %v", g.name, err)
		return false
	}
	has, _, err := g.page.Context(ctx).Has(g.selectors.LoggedIn)
	return err == nil && has
}

// LoginFlow opens the provider page and waits for the user to complete
// login. May block for minutes; never invoked from the hot path.
func (g *WebGateway) LoginFlow(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureStartedLocked(ctx); err != nil {
		return err
	}
	logging.Gateway("%s: waiting for interactive login", g.name)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s login: %w", g.name, ctx.Err())
		case <-time.After(2 * time.Second):
		}
		if has, _, err := g.page.Context(ctx).Has(g.selectors.LoggedIn); err == nil && has {
			return g.saveSessionLocked()
		}
	}
}

// SaveSession persists cookies for this provider.
func (g *WebGateway) SaveSession() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveSessionLocked()
}

func (g *WebGateway) saveSessionLocked() error {
	if g.browser == nil {
		return fmt.Errorf("%s: no browser to save session from", g.name)
	}
	cookies, err := g.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("%s: get cookies: %w", g.name, err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	path := g.sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadSession restores cookies from disk; returns true on success.
func (g *WebGateway) LoadSession() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadSessionLocked()
}

func (g *WebGateway) loadSessionLocked() bool {
	if g.browser == nil {
		return false
	}
	data, err := os.ReadFile(g.sessionPath())
	if err != nil {
		return false
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		logging.GatewayDebug("%s: corrupt session file: %v", g.name, err)
		return false
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return g.browser.SetCookies(params) == nil
}

func (g *WebGateway) sessionPath() string {
	dir := g.cfg.SessionDir
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".aigenflow", "sessions")
	}
	return filepath.Join(dir, g.name+".json")
}

// Close shuts down the browser.
func (g *WebGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.browser == nil {
		return nil
	}
	err := g.browser.Close()
	g.browser = nil
	g.page = nil
	return err
}

func failed(start time.Time, err error) *Response {
	return &Response{
		Success:      false,
		Error:        err.Error(),
		ResponseTime: time.Since(start).Seconds(),
	}
}

func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
