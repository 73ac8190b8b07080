package directive

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputArtifact is the completion record written alongside a directive
// once it has finished executing, regardless of outcome.
type OutputArtifact struct {
	DirectiveID string
	Slug        string
	Priority    Priority
	Success     bool
	Duration    time.Duration
	TokensIn    int
	TokensOut   int
	Cost        float64
	Platform    string
	Model       string
	Summary     string // first ~200 chars of the response, used by session context
	Body        string // full response/result text, or the error detail on failure
	CompletedAt time.Time
}

// OutputHeader is the YAML frontmatter block of an output artifact
// file, per §6: an id distinct from the directive's own (conventionally
// output-<directive-id>) and a directive back-link in double-bracket
// wiki-link form.
type OutputHeader struct {
	ID             string    `yaml:"id"`
	Slug           string    `yaml:"slug"`
	Status         string    `yaml:"status"`
	Priority       Priority  `yaml:"priority"`
	CreatedAt      time.Time `yaml:"created_at"`
	Directive      string    `yaml:"directive"`
	TokensIn       int       `yaml:"tokens_in"`
	TokensOut      int       `yaml:"tokens_out"`
	Cost           float64   `yaml:"cost"`
	ProcessingTime float64   `yaml:"processing_time"`
}

// DirectiveBackLink strips the double-bracket wiki-link syntax off the
// header's Directive field, resolving it to the bare identifier it
// points at.
func (h OutputHeader) DirectiveBackLink() string {
	return strings.TrimSuffix(strings.TrimPrefix(h.Directive, "[["), "]]")
}

// EncodeOutput renders the output artifact as the markdown document
// stored in the directive's destination lifecycle folder.
func EncodeOutput(a OutputArtifact) (string, error) {
	status := "failed"
	if a.Success {
		status = "success"
	}

	header := OutputHeader{
		ID:             "output-" + a.DirectiveID,
		Slug:           a.Slug,
		Status:         status,
		Priority:       a.Priority,
		CreatedAt:      a.CompletedAt,
		Directive:      fmt.Sprintf("[[%s]]", a.DirectiveID),
		TokensIn:       a.TokensIn,
		TokensOut:      a.TokensOut,
		Cost:           a.Cost,
		ProcessingTime: a.Duration.Seconds(),
	}
	headerYAML, err := yaml.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("directive: marshal output header: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	b.Write(headerYAML)
	b.WriteString(frontmatterDelim)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "# Output: %s\n\n", a.Slug)

	b.WriteString("## Status\n\n")
	fmt.Fprintf(&b, "%s\n\n", strings.ToUpper(status))

	b.WriteString("## Priority\n\n")
	fmt.Fprintf(&b, "%s\n\n", valueOrNA(string(a.Priority)))

	b.WriteString("## Description\n\n")
	fmt.Fprintf(&b, "%s / %s\n\n", valueOrNA(a.Platform), valueOrNA(a.Model))

	b.WriteString("## Directive\n\n")
	fmt.Fprintf(&b, "- [[%s]]\n\n", a.DirectiveID)

	b.WriteString("## Performance Metrics\n\n")
	fmt.Fprintf(&b, "- Duration: %.2fs\n", a.Duration.Seconds())
	if a.TokensIn > 0 || a.TokensOut > 0 {
		fmt.Fprintf(&b, "- Tokens: %d in / %d out\n", a.TokensIn, a.TokensOut)
		fmt.Fprintf(&b, "- Cost: $%.5f\n", a.Cost)
	} else {
		b.WriteString("- Tokens: N/A\n")
		b.WriteString("- Cost: N/A\n")
	}
	fmt.Fprintf(&b, "- Completed At: %s\n\n", a.CompletedAt.Format(time.RFC3339))

	b.WriteString("## Output\n\n")
	if strings.TrimSpace(a.Body) == "" {
		b.WriteString("N/A\n\n")
	} else {
		b.WriteString(strings.TrimSpace(a.Body))
		b.WriteString("\n\n")
	}

	b.WriteString("## Notes\n\n")
	b.WriteString("N/A\n")

	return b.String(), nil
}

// DecodeOutput parses an output artifact document back into its header
// and remaining body, mirroring Decode's frontmatter convention.
func DecodeOutput(raw string) (OutputHeader, string, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	trimmed := strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelim) {
		return OutputHeader{}, "", ErrMissingFrontmatter
	}

	rest := trimmed[len(frontmatterDelim):]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return OutputHeader{}, "", ErrMissingFrontmatter
	}
	headerBlock := rest[:end]
	body := rest[end+len(frontmatterDelim)+1:]

	var header OutputHeader
	if err := yaml.Unmarshal([]byte(headerBlock), &header); err != nil {
		return OutputHeader{}, "", fmt.Errorf("directive: parse output header: %w", err)
	}

	return header, strings.TrimLeft(body, "\n"), nil
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Summarize truncates text to at most 200 runes, matching the session
// completion log's "first-200-chars" convention.
func Summarize(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= 200 {
		return string(r)
	}
	return string(r[:200])
}
