package content

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/reader"
)

var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|u|s|strong|em|a|img|ul|ol|li|h[1-6]|blockquote|hr|table|script|style|iframe)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// StripControls removes terminal escape sequences and control characters
// other than newline and tab from upstream text.
func StripControls(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

type rendererKey struct {
	style string
	width int
}

// Renderer turns chapter markup into terminal text. Chapter bodies come from
// the upstream API and are sanitized before conversion.
type Renderer struct {
	policy *bluemonday.Policy
	// style overrides the theme mapping when set, e.g. "notty" in tests.
	style string

	mu    sync.Mutex
	cache map[rendererKey]*glamour.TermRenderer
}

func NewRenderer() *Renderer {
	return &Renderer{
		policy: bluemonday.UGCPolicy(),
		cache:  make(map[rendererKey]*glamour.TermRenderer),
	}
}

// NewPlainRenderer renders without colour, for non-terminal output.
func NewPlainRenderer() *Renderer {
	r := NewRenderer()
	r.style = styles.NoTTYStyle
	return r
}

// StyleFor maps a reader theme onto a glamour base style. The reader view
// paints the theme background itself.
func StyleFor(t reader.Theme) string {
	switch t {
	case reader.ThemeDark, reader.ThemeNight:
		return styles.DarkStyle
	default:
		return styles.LightStyle
	}
}

func (r *Renderer) termRenderer(style string, width int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rendererKey{style: style, width: width}
	if tr, ok := r.cache[key]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	r.cache[key] = tr
	return tr, nil
}

// Markdown returns the chapter body as markdown. Control sequences are
// stripped from every body; HTML bodies are also sanitized and converted.
func (r *Renderer) Markdown(body string) (string, error) {
	body = StripControls(body)
	if strings.TrimSpace(body) == "" {
		return "", nil
	}
	if !containsHTML(body) {
		return body, nil
	}
	clean := r.policy.Sanitize(body)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("converting chapter html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Render lays out the chapter body for a viewport of the given width.
func (r *Renderer) Render(ch *catalog.ChapterDetail, s reader.Settings, viewportWidth int) (string, error) {
	md, err := r.Markdown(ch.Body())
	if err != nil {
		return "", err
	}
	if md == "" {
		return "", nil
	}

	style := r.style
	if style == "" {
		style = StyleFor(s.Theme)
	}
	width := s.WrapWidth(viewportWidth)

	tr, err := r.termRenderer(style, width)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering chapter %s: %w", ch.ID, err)
	}

	out = SpaceParagraphs(out, s.ParagraphSpacing())
	if s.TextAlign == reader.AlignJustify {
		out = Justify(out)
	}

	debuglog.Debugf("rendered chapter %s: width=%d style=%s lines=%d", ch.ID, width, style, strings.Count(out, "\n")+1)
	return out, nil
}
