package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
)

var errNotLoaded = errors.New("no page loaded")

type staticBrowser struct {
	opts Options
}

// NewStatic returns a driver that fetches pages over plain HTTP without running scripts.
func NewStatic(opts Options) Browser {
	return &staticBrowser{opts: opts}
}

func (b *staticBrowser) NewPage(ctx context.Context, userAgent string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = !b.opts.RespectRobots

	page := &staticPage{collector: c}
	c.OnResponse(func(r *colly.Response) {
		page.setBody(r.Body)
	})

	return page, nil
}

func (b *staticBrowser) Close() error { return nil }

type staticPage struct {
	collector *colly.Collector

	mu   sync.Mutex
	body []byte
}

func (p *staticPage) setBody(body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.body = body
}

func (p *staticPage) loaded() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body
}

func (p *staticPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if timeout > 0 {
		p.collector.SetRequestTimeout(timeout)
	}
	p.setBody(nil)

	done := make(chan error, 1)
	go func() {
		done <- p.collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("fetching %s: %w", url, err)
		}
		if p.loaded() == nil {
			return fmt.Errorf("fetching %s: empty response", url)
		}
		return nil
	}
}

// WaitFor checks the fetched document once; without scripts the markup never changes.
func (p *staticPage) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := p.loaded()
	if body == nil {
		return errNotLoaded
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %q not found", selector)
	}
	return nil
}

func (p *staticPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body := p.loaded()
	if body == nil {
		return "", errNotLoaded
	}
	return string(body), nil
}

func (p *staticPage) Close() error {
	p.setBody(nil)
	return nil
}
