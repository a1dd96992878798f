// Package source abstracts the social-media scrapers behind a single
// capability-flagged interface. Each platform adapter shells out to its
// scraper tool and decodes the tool's output into domain items.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/joelkehle/painradar/internal/painpoint"
)

// Capability declares which operations a source actually implements.
// Callers check the flag before calling; a missing capability is not an
// error path, it just narrows what a run can do with that source.
type Capability uint8

const (
	CapFetch Capability = 1 << iota
	CapDeepFetch
	CapAvailabilityCheck
)

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

// ErrUnsupported is returned by operations the source does not implement.
var ErrUnsupported = errors.New("operation not supported by this source")

// DeepFetchOptions bounds a comment-level crawl.
type DeepFetchOptions struct {
	MaxVideos           int
	MaxCommentsPerVideo int
}

func (o DeepFetchOptions) withDefaults() DeepFetchOptions {
	if o.MaxVideos <= 0 {
		o.MaxVideos = 10
	}
	if o.MaxCommentsPerVideo <= 0 {
		o.MaxCommentsPerVideo = 30
	}
	return o
}

// Video is one search hit as the scraper tools report it. Unknown fields in
// the tool output are ignored.
type Video struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	URL          string `json:"url,omitempty"`
	Author       string `json:"author,omitempty"`
	Likes        string `json:"likes,omitempty"`
	CommentCount int    `json:"comment_count,omitempty"`
}

// Comment is one harvested comment, tied back to its parent video by title.
type Comment struct {
	VideoTitle  string `json:"video_title"`
	CommentText string `json:"comment_text"`
	Username    string `json:"username"`
	Likes       string `json:"likes"`
}

// FetchResult is the shallow search envelope: videos plus the flat list of
// title texts.
type FetchResult struct {
	Videos   []Video  `json:"videos"`
	RawTexts []string `json:"raw_texts"`
	Count    int      `json:"count"`
}

// Items converts the shallow result into video-modality raw items.
func (r FetchResult) Items() []painpoint.RawItem {
	items := make([]painpoint.RawItem, 0, len(r.RawTexts))
	for _, t := range r.RawTexts {
		items = append(items, painpoint.RawItem{Text: t, Modality: painpoint.ModalityVideo})
	}
	return items
}

// DeepFetchResult is the comment-level crawl envelope.
type DeepFetchResult struct {
	Videos       []Video   `json:"videos"`
	RawTexts     []string  `json:"raw_texts"`
	AllComments  []Comment `json:"all_comments"`
	VideoCount   int       `json:"video_count"`
	CommentCount int       `json:"comment_count"`
}

// VideoItems returns the title and description texts as video-modality
// items. The flat RawTexts list mixes modalities, so items are rebuilt from
// the structured fields instead.
func (r DeepFetchResult) VideoItems() []painpoint.RawItem {
	var items []painpoint.RawItem
	for _, v := range r.Videos {
		if v.Title != "" {
			items = append(items, painpoint.RawItem{
				Text:     v.Title,
				Author:   v.Author,
				Likes:    v.Likes,
				VideoRef: v.URL,
				Modality: painpoint.ModalityVideo,
			})
		}
		if v.Description != "" {
			items = append(items, painpoint.RawItem{
				Text:     v.Description,
				Author:   v.Author,
				VideoRef: v.URL,
				Modality: painpoint.ModalityVideo,
			})
		}
	}
	return items
}

// CommentItems returns the harvested comments as comment-modality items.
func (r DeepFetchResult) CommentItems() []painpoint.RawItem {
	var items []painpoint.RawItem
	for _, c := range r.AllComments {
		if c.CommentText == "" {
			continue
		}
		items = append(items, painpoint.RawItem{
			Text:     c.CommentText,
			Author:   c.Username,
			Likes:    c.Likes,
			VideoRef: c.VideoTitle,
			Modality: painpoint.ModalityComment,
		})
	}
	return items
}

// DataSource is one platform scraper. Capabilities says which of the three
// operations are real; the others return ErrUnsupported (or true for
// CheckAvailability, since a source without a probe is assumed reachable).
type DataSource interface {
	Name() string
	Capabilities() Capability
	SearchAndFetch(ctx context.Context, keyword string, limit int) (FetchResult, error)
	SearchWithComments(ctx context.Context, keyword string, opts DeepFetchOptions) (DeepFetchResult, error)
	CheckAvailability(ctx context.Context) bool
}

// Registry holds the configured sources by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]DataSource
}

func NewRegistry() *Registry {
	return &Registry{sources: map[string]DataSource{}}
}

func (r *Registry) Register(src DataSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.Name()] = src
}

func (r *Registry) Get(name string) (DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown data source %q (registered: %v)", name, r.names())
	}
	return src, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
