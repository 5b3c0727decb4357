package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

// BrowserAcquirer renders the listing page in a headless Chrome instance and
// returns the post-script HTML. It sits between the local service probe and
// the relay chain: slower than a relay fetch but sees markup that only
// exists after the page's scripts run. Disabled unless UseBrowser is set.
type BrowserAcquirer struct {
	cfg config.Config
}

func NewBrowserAcquirer(cfg config.Config) *BrowserAcquirer {
	return &BrowserAcquirer{cfg: cfg}
}

func (a *BrowserAcquirer) Name() string { return "browser" }

func (a *BrowserAcquirer) Acquire(ctx context.Context, targetURL string) (*models.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, a.browserBudget(ctx))
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, buildChromeOptions(a.cfg)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx, chromedp.Tasks{
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		// Give lazy-loaded galleries a moment to attach their data attributes.
		chromedp.Sleep(2 * time.Second),
		chromedp.OuterHTML("html", &html),
	})
	if err != nil {
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	if len(strings.TrimSpace(html)) < a.cfg.MinHTMLLength {
		return nil, fmt.Errorf("browser returned minimal HTML (%d chars)", len(html))
	}

	return &models.Extraction{HTML: html, Via: a.Name()}, nil
}

// browserBudget caps the browser phase at the configured timeout while
// leaving a cleanup margin when the parent context carries a tighter
// deadline.
func (a *BrowserAcquirer) browserBudget(ctx context.Context) time.Duration {
	budget := a.cfg.BrowserTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline) - 2*time.Second
		if remaining < time.Second {
			remaining = time.Second
		}
		if remaining < budget {
			budget = remaining
		}
	}
	return budget
}

func buildChromeOptions(cfg config.Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}
