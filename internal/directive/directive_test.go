package directive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDirective() Directive {
	return Directive{
		Header: Header{
			ID:            "d-1",
			Slug:          "build-api",
			Platform:      "claude",
			Model:         "claude-3-sonnet",
			Priority:      PriorityHigh,
			Status:        string(StatusPending),
			CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Prerequisites: []string{"design-schema"},
			Phase:         "api",
			SessionID:     "session-1",
		},
		Prompt:   "Build the REST API.",
		Prereqs:  []string{"design-schema"},
		Outputs:  "A running service.",
		Metadata: "source: decomposer",
	}
}

func TestEncodeDecode_RoundTripsHeaderByKey(t *testing.T) {
	d := sampleDirective()

	raw, err := Encode(d)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, d.Header, decoded.Header)
	require.Equal(t, d.Prompt, decoded.Prompt)
	require.Equal(t, d.Prereqs, decoded.Prereqs)
	require.Equal(t, d.Outputs, decoded.Outputs)
	require.Equal(t, d.Metadata, decoded.Metadata)
}

func TestEncode_PrerequisitesRenderAsWikiLinks(t *testing.T) {
	d := sampleDirective()
	raw, err := Encode(d)
	require.NoError(t, err)
	require.Contains(t, raw, "- [[design-schema]]")
}

func TestDecode_EmptySectionsRoundTripToEmptyValues(t *testing.T) {
	d := Directive{
		Header: Header{ID: "d-2", Slug: "bare", Priority: PriorityLow, Status: string(StatusPending), CreatedAt: time.Now()},
		Prompt: "do the thing",
	}
	raw, err := Encode(d)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Empty(t, decoded.Prereqs)
	require.Empty(t, decoded.Outputs)
	require.Empty(t, decoded.Metadata)
}

func TestDecode_MissingFrontmatterIsAnError(t *testing.T) {
	_, err := Decode("## Prompt\n\nno header here\n")
	require.ErrorIs(t, err, ErrMissingFrontmatter)
}

func TestDecode_ToleratesCRLFLineEndings(t *testing.T) {
	d := sampleDirective()
	raw, err := Encode(d)
	require.NoError(t, err)

	crlf := ""
	for _, line := range splitLines(raw) {
		crlf += line + "\r\n"
	}

	decoded, err := Decode(crlf)
	require.NoError(t, err)
	require.Equal(t, d.Header.ID, decoded.Header.ID)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
