package content

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

func isBlank(line string) bool {
	return strings.TrimSpace(ansi.Strip(line)) == ""
}

// SpaceParagraphs trims leading and trailing blank lines and replaces every
// run of blank lines between blocks with exactly n blank lines.
func SpaceParagraphs(text string, n int) string {
	if n < 1 {
		n = 1
	}
	lines := strings.Split(text, "\n")

	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}

	out := make([]string, 0, end-start)
	blanks := 0
	for _, line := range lines[start:end] {
		if isBlank(line) {
			blanks++
			continue
		}
		if blanks > 0 {
			for i := 0; i < n; i++ {
				out = append(out, "")
			}
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Justify stretches every line of a paragraph except its last so that it
// ends on the widest text column of the document. Lines shorter than three
// quarters of that width are left alone.
func Justify(text string) string {
	lines := strings.Split(text, "\n")

	target := 0
	for _, l := range lines {
		if w := ansi.StringWidth(strings.TrimRight(ansi.Strip(l), " ")); w > target {
			target = w
		}
	}
	if target == 0 {
		return text
	}

	for i, l := range lines {
		if isBlank(l) || i == len(lines)-1 || isBlank(lines[i+1]) {
			continue
		}
		lines[i] = justifyLine(l, target)
	}
	return strings.Join(lines, "\n")
}

func justifyLine(line string, target int) string {
	plain := ansi.Strip(line)
	indent := len(plain) - len(strings.TrimLeft(plain, " "))

	// Escape sequences carry no spaces, so zero-width fields are pure styling
	// and stay glued to the neighbouring word.
	var words []string
	pending := ""
	for _, f := range strings.Fields(line) {
		if ansi.StringWidth(f) == 0 {
			if len(words) > 0 {
				words[len(words)-1] += f
			} else {
				pending += f
			}
			continue
		}
		words = append(words, pending+f)
		pending = ""
	}
	if len(words) < 2 {
		return line
	}

	used := 0
	for _, w := range words {
		used += ansi.StringWidth(w)
	}
	gaps := len(words) - 1
	room := target - indent - used
	if room < gaps || used+gaps < (target-indent)*3/4 {
		return line
	}

	each, rest := room/gaps, room%gaps
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indent))
	for i, w := range words {
		b.WriteString(w)
		if i == gaps {
			break
		}
		n := each
		if i < rest {
			n++
		}
		b.WriteString(strings.Repeat(" ", n))
	}
	return b.String()
}
