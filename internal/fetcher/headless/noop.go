package headless

import (
	"context"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// Noop stands in for the browser fetcher when headless mode is disabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with crawler.ErrHeadlessDisabled.
func (Noop) Fetch(_ context.Context, _ crawler.FetchRequest) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, crawler.ErrHeadlessDisabled
}
