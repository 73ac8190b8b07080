// Package collab declares the external-collaborator interfaces the core
// consumes per spec §6 — input sanitization and template rendering — and
// ships minimal default implementations so the module is runnable end to
// end. The core (store, decomposer) never depends on the defaults
// directly; callers inject whichever implementation they choose through
// these interfaces.
package collab

// Sanitizer filters user-supplied text and filenames before they touch
// the filesystem or get embedded in a directive.
type Sanitizer interface {
	SanitizeFilename(name string) (string, error)
	SanitizePrompt(prompt string) (string, error)
	GenerateSafeID(content, prefix string) string
}

// Renderer fills a named template with variables, substituting any
// {{PLACEHOLDER}} tokens. Unknown templates and render errors are
// reported so callers can fall back to a built-in document.
type Renderer interface {
	Render(templateName string, vars map[string]string) (string, error)
}
