package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DouyinSource drives the Douyin scraper tool. It supports shallow search
// and comment-level deep crawls; the tool has no cheap availability probe,
// so availability is assumed.
type DouyinSource struct {
	Python  string
	Script  string
	Timeout time.Duration

	run toolRunner
}

func NewDouyinSource(python, script string) *DouyinSource {
	if python == "" {
		python = "python3"
	}
	return &DouyinSource{Python: python, Script: script, run: runTool}
}

func (s *DouyinSource) Name() string { return "douyin" }

func (s *DouyinSource) Capabilities() Capability { return CapFetch | CapDeepFetch }

func (s *DouyinSource) SearchAndFetch(ctx context.Context, keyword string, limit int) (FetchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := s.run(ctx, s.Python, s.Script, s.Timeout,
		"--action", "search-raw",
		"--keywords", keyword,
		"--limit", strconv.Itoa(limit),
	)
	if err != nil {
		return FetchResult{}, fmt.Errorf("douyin search %q: %w", keyword, err)
	}
	var result FetchResult
	if err := json.Unmarshal(extractJSON(out), &result); err != nil {
		return FetchResult{}, fmt.Errorf("decode douyin search result: %w", err)
	}
	return result, nil
}

func (s *DouyinSource) SearchWithComments(ctx context.Context, keyword string, opts DeepFetchOptions) (DeepFetchResult, error) {
	opts = opts.withDefaults()
	out, err := s.run(ctx, s.Python, s.Script, s.Timeout,
		"--action", "search-with-comments",
		"--keywords", keyword,
		"--max-videos", strconv.Itoa(opts.MaxVideos),
		"--max-comments", strconv.Itoa(opts.MaxCommentsPerVideo),
	)
	if err != nil {
		return DeepFetchResult{}, fmt.Errorf("douyin deep search %q: %w", keyword, err)
	}
	var result DeepFetchResult
	if err := json.Unmarshal(extractJSON(out), &result); err != nil {
		return DeepFetchResult{}, fmt.Errorf("decode douyin deep search result: %w", err)
	}
	return result, nil
}

func (s *DouyinSource) CheckAvailability(context.Context) bool { return true }
