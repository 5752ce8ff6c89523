package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// page is the slice of browser behavior the scroll loop needs.
type page interface {
	ScrollHeight(ctx context.Context) (int64, error)
	ScrollToBottom(ctx context.Context) error
}

// scrollUntilStable scrolls to the bottom until the document height stops
// changing or budget elapses. It returns the number of scrolls performed.
func scrollUntilStable(ctx context.Context, p page, pause, budget time.Duration) (int, error) {
	start := time.Now()
	last, err := p.ScrollHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	rounds := 0
	for {
		if err := p.ScrollToBottom(ctx); err != nil {
			return rounds, fmt.Errorf("scroll to bottom: %w", err)
		}
		rounds++
		if err := sleep(ctx, pause); err != nil {
			return rounds, err
		}
		height, err := p.ScrollHeight(ctx)
		if err != nil {
			return rounds, fmt.Errorf("read scroll height: %w", err)
		}
		if height == last || time.Since(start) > budget {
			return rounds, nil
		}
		last = height
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("scroll pause canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// browserPage drives the page attached to the chromedp executor in ctx.
type browserPage struct{}

func (browserPage) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
		return 0, fmt.Errorf("evaluate scroll height: %w", err)
	}
	return height, nil
}

func (browserPage) ScrollToBottom(ctx context.Context) error {
	if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
		return fmt.Errorf("evaluate scroll: %w", err)
	}
	return nil
}
