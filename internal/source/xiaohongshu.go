package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// XiaohongshuSource drives the Xiaohongshu scraper tool. The tool prints a
// numbered text listing rather than JSON, and its cookie check doubles as an
// availability probe. Comment-level crawls are not implemented by the tool.
type XiaohongshuSource struct {
	Python  string
	Script  string
	Cookie  string // forwarded when set; otherwise the tool reads XHS_COOKIE
	Timeout time.Duration

	run toolRunner
}

func NewXiaohongshuSource(python, script, cookie string) *XiaohongshuSource {
	if python == "" {
		python = "python3"
	}
	return &XiaohongshuSource{Python: python, Script: script, Cookie: cookie, run: runTool}
}

func (s *XiaohongshuSource) Name() string { return "xiaohongshu" }

func (s *XiaohongshuSource) Capabilities() Capability { return CapFetch | CapAvailabilityCheck }

func (s *XiaohongshuSource) CheckAvailability(ctx context.Context) bool {
	out, err := s.run(ctx, s.Python, s.Script, s.Timeout, s.args("check")...)
	if err != nil {
		return false
	}
	return bytes.Contains(out, []byte("COOKIE_VALID"))
}

func (s *XiaohongshuSource) SearchAndFetch(ctx context.Context, keyword string, limit int) (FetchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := s.run(ctx, s.Python, s.Script, s.Timeout, s.args("search", "--keywords", keyword)...)
	if err != nil {
		return FetchResult{}, fmt.Errorf("xiaohongshu search %q: %w", keyword, err)
	}
	videos := parseNoteListing(string(out))
	if len(videos) > limit {
		videos = videos[:limit]
	}
	result := FetchResult{Videos: videos, Count: len(videos)}
	for _, v := range videos {
		result.RawTexts = append(result.RawTexts, v.Title)
	}
	return result, nil
}

func (s *XiaohongshuSource) SearchWithComments(context.Context, string, DeepFetchOptions) (DeepFetchResult, error) {
	return DeepFetchResult{}, ErrUnsupported
}

func (s *XiaohongshuSource) args(action string, extra ...string) []string {
	args := []string{"--action", action}
	if s.Cookie != "" {
		args = append(args, "--cookie", s.Cookie)
	}
	return append(args, extra...)
}

var (
	noteEntryRe = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	noteLikesRe = regexp.MustCompile(`^点赞数:\s*(.+)$`)
	noteURLRe   = regexp.MustCompile(`^链接:\s*(.+)$`)
)

// parseNoteListing reads the tool's numbered listing:
//
//	1. <title>
//	   点赞数: <likes>
//	   链接: <url>
func parseNoteListing(out string) []Video {
	var videos []Video
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := noteEntryRe.FindStringSubmatch(line); m != nil {
			videos = append(videos, Video{Title: strings.TrimSpace(m[1])})
			continue
		}
		if len(videos) == 0 {
			continue
		}
		last := &videos[len(videos)-1]
		if m := noteLikesRe.FindStringSubmatch(line); m != nil {
			last.Likes = strings.TrimSpace(m[1])
		} else if m := noteURLRe.FindStringSubmatch(line); m != nil {
			last.URL = strings.TrimSpace(m[1])
		}
	}
	return videos
}
