// Package render turns generated answer text into display forms. Answers
// arrive as Markdown with embedded code fences and LaTeX lines; reports
// need flat text and the API serves HTML.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// Kind classifies a segment of an answer.
type Kind int

const (
	KindMarkdown Kind = iota
	KindCode
	KindMath
)

// Segment is a run of answer lines that render the same way.
type Segment struct {
	Kind Kind
	Text string
}

// mathRe matches lines that are LaTeX without being fenced in $$.
var mathRe = regexp.MustCompile(`\\frac|\\sum|\\int|\\pi|\\theta|\\epsilon`)

// latexNonASCII strips characters KaTeX-style renderers reject.
var latexNonASCII = regexp.MustCompile(`[^\x00-\x7F]+`)

var latexUnsupported = []string{
	`\begin{equation}`, `\end{equation}`, `\ref`, `\cite`,
}

// SanitizeLaTeX removes environment wrappers and non-ASCII bytes that
// downstream math renderers cannot handle.
func SanitizeLaTeX(latex string) string {
	for _, cmd := range latexUnsupported {
		latex = strings.ReplaceAll(latex, cmd, "")
	}
	return latexNonASCII.ReplaceAllString(latex, "")
}

// Segmentize splits an answer into markdown, code and math segments.
// Code fences open and close on lines starting with three backticks; an
// unclosed fence runs to the end. Math is either a $$-delimited line or a
// line containing common LaTeX control sequences.
func Segmentize(answer string) []Segment {
	var segs []Segment
	var md []string
	var code []string
	inCode := false

	flushMD := func() {
		if len(md) > 0 {
			segs = append(segs, Segment{Kind: KindMarkdown, Text: strings.Join(md, "\n")})
			md = nil
		}
	}

	for _, line := range strings.Split(answer, "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "```"):
			if inCode {
				segs = append(segs, Segment{Kind: KindCode, Text: strings.Join(code, "\n")})
				code = nil
				inCode = false
			} else {
				flushMD()
				inCode = true
			}
		case inCode:
			code = append(code, line)
		case strings.HasPrefix(line, "$$") && strings.HasSuffix(line, "$$") && len(line) >= 4:
			flushMD()
			segs = append(segs, Segment{Kind: KindMath, Text: SanitizeLaTeX(strings.Trim(line, "$"))})
		case mathRe.MatchString(line):
			flushMD()
			segs = append(segs, Segment{Kind: KindMath, Text: SanitizeLaTeX(line)})
		default:
			md = append(md, line)
		}
	}
	if inCode && len(code) > 0 {
		segs = append(segs, Segment{Kind: KindCode, Text: strings.Join(code, "\n")})
	}
	flushMD()
	return segs
}

// ToHTML renders an answer as an HTML fragment. Markdown segments go
// through goldmark, code segments become <pre><code> blocks and math
// segments keep their $$ delimiters for client-side rendering.
func ToHTML(answer string) (string, error) {
	var out strings.Builder
	for _, seg := range Segmentize(answer) {
		switch seg.Kind {
		case KindCode:
			out.WriteString("<pre><code>")
			out.WriteString(escapeHTML(seg.Text))
			out.WriteString("</code></pre>\n")
		case KindMath:
			fmt.Fprintf(&out, "<p class=\"math\">$$%s$$</p>\n", escapeHTML(seg.Text))
		default:
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(seg.Text), &buf); err != nil {
				return "", fmt.Errorf("render markdown: %w", err)
			}
			out.Write(buf.Bytes())
		}
	}
	return out.String(), nil
}

// PlainText flattens an answer for report output: markdown formatting is
// resolved (lists, emphasis, headings) by converting through HTML and
// extracting the text nodes; code and math segments pass through as-is.
func PlainText(answer string) string {
	var parts []string
	for _, seg := range Segmentize(answer) {
		switch seg.Kind {
		case KindCode, KindMath:
			parts = append(parts, seg.Text)
		default:
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(seg.Text), &buf); err != nil {
				parts = append(parts, seg.Text)
				continue
			}
			parts = append(parts, htmlToText(buf.String()))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// htmlToText extracts text content from an HTML fragment, separating
// block elements with newlines.
func htmlToText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "h1", "h2", "h3", "h4", "h5", "h6", "br", "ul", "ol", "blockquote", "pre":
				buf.WriteString("\n")
			}
		}
	}
	walk(doc)

	// Collapse runs of blank lines left by nested blocks.
	lines := strings.Split(buf.String(), "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" && len(out) > 0 && out[len(out)-1] == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
