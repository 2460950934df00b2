package content

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pders01/ranobe/internal/catalog"
)

var printer = message.NewPrinter(language.English)

// CompactCount shortens large counts: 1520 -> 1.5K, 2300000 -> 2.3M.
func CompactCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// GroupedCount formats n with thousands separators.
func GroupedCount(n int) string {
	return printer.Sprintf("%d", n)
}

// Header is the block shown above a chapter body.
type Header struct {
	Novel   string
	Volume  string
	Chapter string
	Stats   string
}

func ChapterHeader(ch *catalog.ChapterDetail) Header {
	stats := []string{
		GroupedCount(ch.WordCount()) + " words",
		CompactCount(ch.Views()) + " views",
	}
	if ch.LastUpdated != nil {
		stats = append(stats, ch.LastUpdated.Format("2006-01-02"))
	}
	return Header{
		Novel:   StripControls(ch.Novel.Title),
		Volume:  StripControls(ch.Volume.TitleOrEmpty()),
		Chapter: StripControls(ch.DisplayTitle()),
		Stats:   strings.Join(stats, " · "),
	}
}
