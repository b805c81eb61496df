package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	bareURL     = regexp.MustCompile(`https?://[^\s)\]]+`)
	markdownURL = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Result is the outcome of checking one URL.
type Result struct {
	URL    string `json:"url" yaml:"url"`
	Status int    `json:"status,omitempty" yaml:"status,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r Result) OK() bool {
	return r.Error == "" && r.Status >= 200 && r.Status < 400
}

// ExtractURLs returns the unique bare and markdown link targets in texts,
// in first-seen order.
func ExtractURLs(texts ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		u = strings.TrimRight(u, ".,;:!?")
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, text := range texts {
		for _, u := range bareURL.FindAllString(text, -1) {
			add(u)
		}
		for _, m := range markdownURL.FindAllStringSubmatch(text, -1) {
			if strings.HasPrefix(m[2], "http://") || strings.HasPrefix(m[2], "https://") {
				add(m[2])
			}
		}
	}
	return out
}

// Checker issues HEAD requests against extracted links
type Checker struct {
	HTTPClient *http.Client
}

func NewChecker() *Checker {
	return &Checker{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

// Check verifies each URL in turn and returns only the failures.
func (c *Checker) Check(ctx context.Context, urls []string) []Result {
	var broken []Result
	for _, u := range urls {
		res := c.check(ctx, u)
		if !res.OK() {
			slog.Warn("Link verification failed", "url", u, "status", res.Status, "error", res.Error)
			broken = append(broken, res)
		}
	}
	return broken
}

func (c *Checker) check(ctx context.Context, u string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return Result{URL: u, Error: fmt.Sprintf("invalid url: %v", err)}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{URL: u, Error: err.Error()}
	}
	resp.Body.Close()
	return Result{URL: u, Status: resp.StatusCode}
}
