// Package output renders CLI results: styled text when stdout is a
// terminal, plain text when piped, JSON on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rangerlabs/geocat/internal/search"
	"github.com/rangerlabs/geocat/internal/store"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Color palette, 256-color codes.
const (
	colorGreen  = "114" // titles
	colorCyan   = "81"  // ranks and scores
	colorGray   = "245" // secondary text
	colorYellow = "220" // section headers
)

// Styles holds the lipgloss styles for terminal rendering.
type Styles struct {
	Title  lipgloss.Style
	Rank   lipgloss.Style
	Meta   lipgloss.Style
	Header lipgloss.Style
}

func coloredStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorGreen)),
		Rank:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		Meta:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow)),
	}
}

func plainStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle(),
		Rank:   lipgloss.NewStyle(),
		Meta:   lipgloss.NewStyle(),
		Header: lipgloss.NewStyle(),
	}
}

// Renderer writes formatted output.
type Renderer struct {
	out    io.Writer
	format Format
	styles Styles
}

// NewRenderer creates a renderer for the writer. Styling is enabled only
// when the writer is a terminal.
func NewRenderer(out io.Writer, format Format) *Renderer {
	styles := plainStyles()
	if f, ok := out.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			styles = coloredStyles()
		}
	}
	if format == "" {
		format = FormatText
	}
	return &Renderer{out: out, format: format, styles: styles}
}

// Results renders a search result list.
func (r *Renderer) Results(query string, results []search.Result, explain bool) error {
	if r.format == FormatJSON {
		return r.writeJSON(map[string]any{
			"query":   query,
			"count":   len(results),
			"results": results,
		})
	}

	if len(results) == 0 {
		r.println(r.styles.Meta.Render("No results."))
		return nil
	}

	for i, res := range results {
		doc := res.Document
		r.printf("%s %s\n",
			r.styles.Rank.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(doc.Title))

		if desc := firstNonEmpty(doc.Description, doc.Abstract); desc != "" {
			r.printf("    %s\n", r.styles.Meta.Render(truncate(desc, 160)))
		}

		meta := fmt.Sprintf("source: %s", doc.Source)
		if len(doc.Keywords) > 0 {
			meta += "  keywords: " + strings.Join(firstN(doc.Keywords, 5), ", ")
		}
		r.printf("    %s\n", r.styles.Meta.Render(meta))

		if explain {
			r.printf("    %s\n", r.styles.Meta.Render(explainLine(res)))
		}
	}
	return nil
}

func explainLine(res search.Result) string {
	parts := []string{fmt.Sprintf("score: %.5f", res.Score)}
	if res.VecRank > 0 {
		parts = append(parts, fmt.Sprintf("vector rank: %d", res.VecRank))
	}
	if res.LexRank > 0 {
		parts = append(parts, fmt.Sprintf("lexical rank: %d", res.LexRank))
	}
	if res.InBoth {
		parts = append(parts, "in both rankings")
	}
	return strings.Join(parts, "  ")
}

// Answer renders a synthesized answer followed by its source documents.
func (r *Renderer) Answer(question, answer string, results []search.Result) error {
	if r.format == FormatJSON {
		return r.writeJSON(map[string]any{
			"question": question,
			"answer":   answer,
			"sources":  results,
		})
	}

	r.println(r.styles.Header.Render("Answer"))
	r.println(answer)
	r.println("")
	r.println(r.styles.Header.Render("Sources"))
	for i, res := range results {
		r.printf("%s %s %s\n",
			r.styles.Rank.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(res.Document.Title),
			r.styles.Meta.Render("("+res.Document.Source+")"))
	}
	return nil
}

// Stats holds what 'geocat stats' renders.
type Stats struct {
	Documents  int                      `json:"documents"`
	Sources    []string                 `json:"sources"`
	Keywords   []store.KeywordFrequency `json:"keywords,omitempty"`
	Duplicates []store.DuplicateTitle   `json:"duplicates,omitempty"`
}

// StatsReport renders catalog statistics.
func (r *Renderer) StatsReport(s Stats) error {
	if r.format == FormatJSON {
		return r.writeJSON(s)
	}

	r.println(r.styles.Header.Render("Catalog"))
	r.printf("  documents: %d\n", s.Documents)
	r.printf("  sources:   %s\n", strings.Join(s.Sources, ", "))

	if len(s.Keywords) > 0 {
		r.println("")
		r.println(r.styles.Header.Render("Most frequent keywords"))
		for i, kf := range s.Keywords {
			r.printf("%s %-40s %d\n",
				r.styles.Rank.Render(fmt.Sprintf("%3d.", i+1)),
				kf.Keyword, kf.Frequency)
		}
	}

	if len(s.Duplicates) > 0 {
		r.println("")
		r.println(r.styles.Header.Render("Duplicate titles"))
		for _, dt := range s.Duplicates {
			r.printf("  %s %s\n",
				r.styles.Rank.Render(fmt.Sprintf("%dx", dt.Count)),
				dt.Title)
		}
	}
	return nil
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
