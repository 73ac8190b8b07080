// Package bridge implements the bidirectional mapping between an
// external to-do list and directive records (C5). Grounded on
// original_source/lib/todo_directive_bridge.py
// (claude_todos_to_directives, sync_todo_status, and the
// directive-folder-to-status projection used by its scan helper).
package bridge

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

// TodoItem is one external to-do record as the bridge receives or
// projects it.
type TodoItem struct {
	ID       string
	Content  string
	Status   string // "pending" | "completed"
	Priority string // "high" | "medium" | "low"
}

const (
	TodoStatusPending   = "pending"
	TodoStatusCompleted = "completed"
)

// Bridge translates between an external to-do list and the directive
// store, keeping the session context's todo-to-directive map in sync.
type Bridge struct {
	store     *store.Store
	ctx       *session.Context
	sanitizer collab.Sanitizer
	log       *logging.Logger
}

// New constructs a Bridge over a store and the active session context.
func New(s *store.Store, ctx *session.Context, sanitizer collab.Sanitizer, log *logging.Logger) *Bridge {
	return &Bridge{store: s, ctx: ctx, sanitizer: sanitizer, log: log}
}

// Forward converts an ordered to-do list into one directive per to-do.
// Each directive records its to-do id and ordinal; prerequisites are the
// slug of the immediately preceding directive in the batch (not the
// entire prior chain — the original's "todos" closure bug intentionally
// not reproduced, per SPEC_FULL §9's explicit-ordered-list fix). The
// to-do-to-directive mapping is recorded in the session context as each
// directive is produced.
func (b *Bridge) Forward(todos []TodoItem, platform, model string) ([]directive.Directive, error) {
	now := time.Now()
	total := len(todos)
	records := make([]directive.Directive, 0, total)

	var prevSlug string
	for i, t := range todos {
		content := t.Content
		if b.sanitizer != nil {
			sanitized, err := b.sanitizer.SanitizePrompt(content)
			if err != nil {
				return nil, fmt.Errorf("bridge: sanitize todo %s: %w", t.ID, err)
			}
			content = sanitized
		}

		id := uuid.NewString()
		slug := b.slugify(content, id)

		var prereqs []string
		if prevSlug != "" {
			prereqs = []string{prevSlug}
		}

		d := directive.Directive{
			Header: directive.Header{
				ID:            id,
				Slug:          slug,
				Platform:      platform,
				Model:         model,
				Priority:      mapPriority(t.Priority),
				Status:        string(directive.StatusPending),
				CreatedAt:     now,
				Prerequisites: prereqs,
				SessionID:     b.ctx.SessionID,
				ClaudeTodoID:  t.ID,
				TodoIndex:     i,
				TotalTodos:    total,
			},
			Prompt: content,
		}
		records = append(records, d)
		prevSlug = slug

		if b.ctx != nil {
			if err := b.ctx.RecordTodoMapping(t.ID, id); err != nil {
				return nil, fmt.Errorf("bridge: record todo mapping for %s: %w", t.ID, err)
			}
		}
	}

	return records, nil
}

// Sync rewrites the in-memory to-do matching d's recorded to-do id with
// newStatus and returns the updated list. It does not write the session
// context to disk; the change lives only in the returned slice.
// Directives without a recorded to-do id are a no-op (§4.6 step 8 only
// invokes the bridge when one is present, but Sync tolerates being called
// regardless).
func (b *Bridge) Sync(todos []TodoItem, d directive.Directive, newStatus string) []TodoItem {
	if d.Header.ClaudeTodoID == "" {
		return todos
	}
	for i := range todos {
		if todos[i].ID == d.Header.ClaudeTodoID {
			todos[i].Status = newStatus
			break
		}
	}
	return todos
}

// Scan enumerates every directive file across every lifecycle folder and
// projects a to-do list out of those that carry a recorded to-do id,
// with status inferred from the containing folder: completed if the
// folder is success-class (success, exemplar, or the legacy
// possible-exemplars name), pending otherwise.
func (b *Bridge) Scan() ([]TodoItem, error) {
	byFolder, err := b.store.ScanAll()
	if err != nil {
		return nil, fmt.Errorf("bridge: scan store: %w", err)
	}

	successFolders := map[string]bool{
		store.FolderSuccess:  true,
		store.FolderExemplar: true,
		store.LegacyExemplar: true,
	}

	var todos []TodoItem
	for folder, directives := range byFolder {
		status := TodoStatusPending
		if successFolders[folder] {
			status = TodoStatusCompleted
		}
		for _, d := range directives {
			if d.Header.ClaudeTodoID == "" {
				continue
			}
			todos = append(todos, TodoItem{
				ID:       d.Header.ClaudeTodoID,
				Content:  d.Prompt,
				Status:   status,
				Priority: string(d.Header.Priority),
			})
		}
	}

	return todos, nil
}

func mapPriority(p string) directive.Priority {
	switch p {
	case "high":
		return directive.PriorityHigh
	case "low":
		return directive.PriorityLow
	default:
		return directive.PriorityMedium
	}
}

func (b *Bridge) slugify(content, id string) string {
	if b.sanitizer != nil {
		if safe := b.sanitizer.GenerateSafeID(content, "todo"); safe != "" {
			return safe
		}
	}
	return id
}
