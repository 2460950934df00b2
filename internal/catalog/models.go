package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Meta is the free-form metadata object the API attaches to novels,
// volumes and chapters. Values arrive as decoded JSON.
type Meta map[string]any

// Int returns the numeric value stored under key, or 0 when absent or not a number.
func (m Meta) Int(key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Float returns the numeric value stored under key, or 0.
func (m Meta) Float(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String returns the string stored under key, or "".
func (m Meta) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

type NovelBrief struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Status      *string    `json:"status,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Meta        Meta       `json:"meta,omitempty"`
}

type NovelDetail struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	OtherTitles []string   `json:"other_titles,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	Artists     []string   `json:"artists,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Meta        Meta       `json:"meta,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Volumes     []Volume   `json:"volumes"`
}

type Volume struct {
	ID          string         `json:"id"`
	NovelID     string         `json:"novel_id"`
	Title       *string        `json:"title,omitempty"`
	Order       *int           `json:"order,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
	Meta        Meta           `json:"meta,omitempty"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Chapters    []ChapterBrief `json:"chapters"`
}

type ChapterBrief struct {
	ID          string     `json:"id"`
	VolumeID    string     `json:"volume_id"`
	Title       *string    `json:"title,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Meta        Meta       `json:"meta,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// VolumeBrief is the volume reference embedded in a chapter record.
type VolumeBrief struct {
	ID       string  `json:"id"`
	NovelID  string  `json:"novel_id"`
	Title    *string `json:"title,omitempty"`
	Order    *int    `json:"order,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// NovelInfo is the novel reference embedded in a chapter record.
type NovelInfo struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Artists  []string `json:"artists,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL *string  `json:"image_url,omitempty"`
}

type ChapterDetail struct {
	ID          string      `json:"id"`
	VolumeID    string      `json:"volume_id"`
	Title       *string     `json:"title,omitempty"`
	Order       *int        `json:"order,omitempty"`
	Content     *string     `json:"content,omitempty"`
	Meta        Meta        `json:"meta,omitempty"`
	LastUpdated *time.Time  `json:"last_updated,omitempty"`
	Volume      VolumeBrief `json:"volume"`
	Novel       NovelInfo   `json:"novel"`
}

// HistoryEntry is one row of the signed-in user's reading history.
type HistoryEntry struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	NovelID   string        `json:"novel_id"`
	ChapterID string        `json:"chapter_id"`
	CreatedAt time.Time     `json:"created_at"`
	Novel     *NovelBrief   `json:"novel,omitempty"`
	Chapter   *ChapterBrief `json:"chapter,omitempty"`
}

// Default substitution rules for optional fields. Every view reads optional
// values through these accessors instead of handling nil itself:
//
//	order        -> 0
//	title        -> "" (chapters fall back to "Chapter N" for display)
//	content      -> ""
//	image_url    -> ""
//	description  -> ""
//	status, type -> ""
//	views        -> meta.views, else 0
//	rating       -> meta.rating, else 0

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (v Volume) OrderOrZero() int        { return derefInt(v.Order) }
func (v Volume) TitleOrEmpty() string    { return derefString(v.Title) }
func (v Volume) ImageOrEmpty() string    { return derefString(v.ImageURL) }
func (c ChapterBrief) OrderOrZero() int  { return derefInt(c.Order) }
func (c ChapterBrief) Views() int        { return c.Meta.Int("views") }
func (c ChapterDetail) OrderOrZero() int { return derefInt(c.Order) }
func (c ChapterDetail) Views() int       { return c.Meta.Int("views") }
func (c ChapterDetail) Body() string     { return derefString(c.Content) }
func (v VolumeBrief) TitleOrEmpty() string {
	return derefString(v.Title)
}

func (c ChapterBrief) DisplayTitle() string {
	return displayTitle(c.Title, c.Order)
}

func (c ChapterDetail) DisplayTitle() string {
	return displayTitle(c.Title, c.Order)
}

func displayTitle(title *string, order *int) string {
	if t := strings.TrimSpace(derefString(title)); t != "" {
		return t
	}
	return fmt.Sprintf("Chapter %d", derefInt(order))
}

func (n NovelDetail) DescriptionOrEmpty() string { return derefString(n.Description) }
func (n NovelDetail) StatusOrEmpty() string      { return derefString(n.Status) }
func (n NovelDetail) TypeOrEmpty() string        { return derefString(n.Type) }
func (n NovelDetail) ImageOrEmpty() string       { return derefString(n.ImageURL) }
func (n NovelBrief) StatusOrEmpty() string       { return derefString(n.Status) }
func (n NovelBrief) TypeOrEmpty() string         { return derefString(n.Type) }

// TotalViews reads meta.total_views.
func (n NovelDetail) TotalViews() int { return n.Meta.Int("total_views") }

func (n NovelDetail) Rating() float64 { return n.Meta.Float("rating") }
func (n NovelBrief) Rating() float64  { return n.Meta.Float("rating") }

// Brief projects a detail record down to its list form.
func (n NovelDetail) Brief() NovelBrief {
	return NovelBrief{
		ID:          n.ID,
		Title:       n.Title,
		ImageURL:    n.ImageURL,
		Authors:     n.Authors,
		Tags:        n.Tags,
		Type:        n.Type,
		Status:      n.Status,
		LastUpdated: n.LastUpdated,
		Meta:        n.Meta,
	}
}

// Brief projects a chapter record down to the form listed inside a volume.
func (c ChapterDetail) Brief() ChapterBrief {
	return ChapterBrief{
		ID:          c.ID,
		VolumeID:    c.VolumeID,
		Title:       c.Title,
		Order:       c.Order,
		Meta:        c.Meta,
		LastUpdated: c.LastUpdated,
	}
}

// ChapterCount sums chapters over all volumes.
func (n NovelDetail) ChapterCount() int {
	total := 0
	for _, v := range n.Volumes {
		total += len(v.Chapters)
	}
	return total
}

// WordCount approximates the number of words in the chapter body by counting
// whitespace-separated fields of its markup with tags stripped.
func (c ChapterDetail) WordCount() int {
	body := c.Body()
	var b strings.Builder
	inTag := false
	for _, r := range body {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return len(strings.Fields(b.String()))
}
