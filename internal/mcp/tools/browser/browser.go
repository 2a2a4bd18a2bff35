// Package browser provides web browsing tools backed by a Chrome instance
// driven through go-rod:
//
//   - "visit_url": navigate to a URL and return the page title.
//   - "page_text": the visible text of the current page.
//   - "go_back": navigate back in history.
//   - "close_popups": press Escape to dismiss modals.
//
// Chrome is launched on the first visit_url call and shared by all tools of
// a [Manager]. The owner must call [Manager.Close].
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ltejedor/building-ai-agents/internal/mcp/tools"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// maxTextRunes caps page_text output.
const maxTextRunes = 20_000

const stableWait = 300 * time.Millisecond

// ErrNoPage is returned by page tools before any page has been visited.
var ErrNoPage = errors.New("no page open, call visit_url first")

// Manager owns the Chrome process and the single page the tools operate on.
type Manager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	headless bool
	bin      string
	startURL string
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeadless sets headless mode (default true).
func WithHeadless(h bool) Option {
	return func(m *Manager) { m.headless = h }
}

// WithBin sets the Chrome binary. Empty means go-rod's lookup/download.
func WithBin(path string) Option {
	return func(m *Manager) { m.bin = path }
}

// WithStartURL sets the URL the first tab opens before navigating.
func WithStartURL(u string) Option {
	return func(m *Manager) { m.startURL = u }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager. No browser is started until it is needed.
func New(opts ...Option) *Manager {
	m := &Manager{
		headless: true,
		startURL: "about:blank",
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Running reports whether Chrome has been launched.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// Close shuts down Chrome if it was started. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.browser = nil
	m.page = nil
	if err != nil {
		return fmt.Errorf("browser: close: %w", err)
	}
	return nil
}

// connectOrKill connects b and kills the launched process if that fails, so
// a failed connect never leaves Chrome running.
func connectOrKill(b interface{ Connect() error }, l interface{ Kill() }) error {
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to Chrome: %w", err)
	}
	return nil
}

// ensurePage launches Chrome and opens the working tab if needed.
// Must be called with m.mu held.
func (m *Manager) ensurePage() (*rod.Page, error) {
	if m.page != nil {
		return m.page, nil
	}

	if m.browser == nil {
		l := launcher.New().
			Headless(m.headless).
			Set("disable-gpu").
			Set("no-first-run").
			Set("no-default-browser-check")
		if m.bin != "" {
			l = l.Bin(m.bin)
		}

		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch Chrome: %w", err)
		}
		m.logger.Info("browser: Chrome launched", "cdp", controlURL, "headless", m.headless)

		b := rod.New().ControlURL(controlURL)
		if err := connectOrKill(b, l); err != nil {
			return nil, err
		}
		m.browser = b
	}

	page, err := m.browser.Page(proto.TargetCreateTarget{URL: m.startURL})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	m.page = page
	return page, nil
}

// currentPage returns the working tab bound to ctx, or ErrNoPage.
func (m *Manager) currentPage(ctx context.Context) (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page == nil {
		return nil, ErrNoPage
	}
	return m.page.Context(ctx), nil
}

// Visit navigates the working tab to rawURL and returns the page title.
func (m *Manager) Visit(ctx context.Context, rawURL string) (string, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	page, err := m.ensurePage()
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	page = page.Context(ctx)
	if err := page.Navigate(target); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitStable(stableWait); err != nil {
		return "", fmt.Errorf("wait stable after navigate: %w", err)
	}
	return describe(page), nil
}

// Text returns the visible text of the working tab, truncated to a fixed
// number of runes.
func (m *Manager) Text(ctx context.Context) (string, error) {
	page, err := m.currentPage(ctx)
	if err != nil {
		return "", err
	}
	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("find body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return truncate(strings.TrimSpace(text), maxTextRunes), nil
}

// Back navigates the working tab one step back in history.
func (m *Manager) Back(ctx context.Context) (string, error) {
	page, err := m.currentPage(ctx)
	if err != nil {
		return "", err
	}
	if err := page.NavigateBack(); err != nil {
		return "", fmt.Errorf("navigate back: %w", err)
	}
	_ = page.WaitStable(stableWait)
	return describe(page), nil
}

// ClosePopups presses Escape on the working tab.
func (m *Manager) ClosePopups(ctx context.Context) error {
	page, err := m.currentPage(ctx)
	if err != nil {
		return err
	}
	if err := page.Keyboard.Press(input.Escape); err != nil {
		return fmt.Errorf("press escape: %w", err)
	}
	return nil
}

func describe(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return "Navigated."
	}
	if info.Title == "" {
		return "Now at " + info.URL
	}
	return fmt.Sprintf("Now at %s (%s)", info.URL, info.Title)
}

// normalizeURL accepts http(s) URLs and bare hosts, which get https://.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url must not be empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}
	return u.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n[truncated]"
}

type visitArgs struct {
	URL string `json:"url"`
}

// NewTools returns the browser toolset operating on m.
func NewTools(m *Manager) []tools.Tool {
	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "visit_url",
				Description: "Navigates the browser to a URL and reports where it ended up.",
				Parameters: tools.Object(map[string]any{
					"url": tools.String("The URL to open, e.g. https://example.com."),
				}, "url"),
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a visitArgs
				if err := tools.DecodeArgs("visit_url", args, &a); err != nil {
					return "", err
				}
				out, err := m.Visit(ctx, a.URL)
				if err != nil {
					return "", fmt.Errorf("visit_url: %w", err)
				}
				return out, nil
			},
			DeclaredP50: 2000,
			DeclaredMax: 15000,
			SideEffects: true,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "page_text",
				Description: "Returns the visible text of the current page.",
				Parameters:  tools.Object(map[string]any{}),
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				out, err := m.Text(ctx)
				if err != nil {
					return "", fmt.Errorf("page_text: %w", err)
				}
				return out, nil
			},
			DeclaredP50: 200,
			DeclaredMax: 2000,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "go_back",
				Description: "Goes back to the previous page.",
				Parameters:  tools.Object(map[string]any{}),
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				out, err := m.Back(ctx)
				if err != nil {
					return "", fmt.Errorf("go_back: %w", err)
				}
				return out, nil
			},
			DeclaredP50: 1000,
			DeclaredMax: 10000,
			SideEffects: true,
		},
		{
			Definition: llm.ToolDefinition{
				Name: "close_popups",
				Description: "Closes any visible modal or pop-up on the page. Use this to dismiss pop-up windows! " +
					"This does not work on cookie consent banners.",
				Parameters: tools.Object(map[string]any{}),
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				if err := m.ClosePopups(ctx); err != nil {
					return "", fmt.Errorf("close_popups: %w", err)
				}
				return "Pressed Escape.", nil
			},
			DeclaredP50: 50,
			DeclaredMax: 1000,
			SideEffects: true,
		},
	}
}
