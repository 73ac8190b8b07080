// Package session implements the session context (C6): per-session
// history persisted atomically to disk, and the context block assembled
// for each directive before dispatch. Grounded on
// original_source/agents/engage_agent.py's
// _load_or_create_session_context/_save_session_context (resume most
// recently modified file, atomic temp-file+rename persistence) and the
// teacher's internal/usage/usage_tracker.go for the mutex-guarded struct
// shape.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/computer-project/computer/internal/directive"
)

const sessionFilePrefix = "session-"

// CompletionEntry is one row in a session's append-only completion log.
type CompletionEntry struct {
	DirectiveID string    `json:"directive_id"`
	Slug        string    `json:"slug"`
	Task        string    `json:"task"`
	Success     bool      `json:"success"`
	Duration    float64   `json:"duration"`
	TokensIn    int       `json:"tokens_in"`
	TokensOut   int       `json:"tokens_out"`
	Cost        float64   `json:"cost"`
	Summary     string    `json:"summary"`
	Timestamp   time.Time `json:"timestamp"`
}

// HistoryEntry records one execution-loop action against a directive,
// independent of success/failure, for the execution_history field.
type HistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	DirectiveID string    `json:"directive_id"`
	Action      string    `json:"action"`
	Duration    float64   `json:"duration"`
}

// Context is the persisted, per-session state shared by every directive
// produced from one decomposition.
type Context struct {
	SessionID           string            `json:"session_id"`
	CreatedAt           time.Time         `json:"created_at"`
	CompletedDirectives []CompletionEntry `json:"completed_directives"`
	KnowledgeBase       map[string]string `json:"knowledge_base"`
	ExecutionHistory    []HistoryEntry    `json:"execution_history"`

	// TodoDirectiveMap maps an external-todo id to the directive id
	// created for it, used by the bridge (C5).
	TodoDirectiveMap map[string]string `json:"todo_directive_map"`

	path string
	mu   sync.Mutex
}

// LoadOrCreate resumes the most-recently-modified session-* file in dir,
// or creates a fresh one if none exists.
func LoadOrCreate(dir string) (*Context, error) {
	latest, err := mostRecentSessionFile(dir)
	if err != nil {
		return nil, err
	}
	if latest != "" {
		return load(latest)
	}
	return create(dir)
}

func mostRecentSessionFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("session: read %s: %w", dir, err)
	}

	var best string
	var bestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), sessionFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, e.Name())
			bestMod = info.ModTime()
		}
	}
	return best, nil
}

func load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	c.path = path
	if c.KnowledgeBase == nil {
		c.KnowledgeBase = make(map[string]string)
	}
	if c.TodoDirectiveMap == nil {
		c.TodoDirectiveMap = make(map[string]string)
	}
	return &c, nil
}

func create(dir string) (*Context, error) {
	id := sessionFilePrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
	c := &Context{
		SessionID:        id,
		CreatedAt:        time.Now(),
		KnowledgeBase:    make(map[string]string),
		TodoDirectiveMap: make(map[string]string),
		path:             filepath.Join(dir, id+".json"),
	}
	if err := c.persist(); err != nil {
		return nil, err
	}
	return c, nil
}

// AppendCompletion records one directive's completion and persists the
// context atomically. Per §4.6 step 7 / §5, this must happen before the
// directive's file is relocated to its terminal folder.
func (c *Context) AppendCompletion(entry CompletionEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CompletedDirectives = append(c.CompletedDirectives, entry)
	c.ExecutionHistory = append(c.ExecutionHistory, HistoryEntry{
		Timestamp:   entry.Timestamp,
		DirectiveID: entry.DirectiveID,
		Action:      "completed",
		Duration:    entry.Duration,
	})
	return c.persist()
}

// RecordTodoMapping associates an external-todo id with the directive
// created for it, for later bridge sync.
func (c *Context) RecordTodoMapping(todoID, directiveID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TodoDirectiveMap[todoID] = directiveID
	return c.persist()
}

// persist writes the context to a temp file and renames it over the
// canonical path, strengthening the original project's plain write into
// an atomic one per SPEC_FULL §4.3. Caller must hold c.mu.
func (c *Context) persist() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("session: rename temp file: %w", err)
	}
	return nil
}

// ContextBlock assembles the markdown-shaped text prepended to a
// directive's task before dispatch (§4.3). Loss of the session file is
// not fatal to the caller; ContextBlock only ever reads in-memory state.
func (c *Context) ContextBlock(d directive.Directive, relatedTodos []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s (started %s)\n", c.SessionID, c.CreatedAt.Format(time.RFC3339))

	recent := c.lastNCompletions(5)
	if len(recent) > 0 {
		b.WriteString("Recent completions:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Task, statusWord(r.Success), r.Summary)
		}
	}

	if len(relatedTodos) > 0 {
		b.WriteString("Related to-dos:\n")
		for _, t := range relatedTodos {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	if len(c.KnowledgeBase) > 0 {
		b.WriteString("Knowledge base:\n")
		keys := make([]string, 0, len(c.KnowledgeBase))
		for k := range c.KnowledgeBase {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, c.KnowledgeBase[k])
		}
	}

	if len(d.Header.Prerequisites) > 0 {
		b.WriteString("Prerequisites:\n")
		for _, p := range d.Header.Prerequisites {
			if entry := c.findCompletion(p); entry != nil {
				fmt.Fprintf(&b, "- %s: %s\n", p, entry.Summary)
			} else {
				fmt.Fprintf(&b, "- %s: (no summary available)\n", p)
			}
		}
	}

	return b.String()
}

func (c *Context) lastNCompletions(n int) []CompletionEntry {
	if len(c.CompletedDirectives) <= n {
		return c.CompletedDirectives
	}
	return c.CompletedDirectives[len(c.CompletedDirectives)-n:]
}

// findCompletion matches a prerequisite value against either the
// completion's directive id or its slug: decomposer/bridge-produced
// directives record prerequisites as the preceding directive's slug,
// never its id, so matching on id alone never resolves a real
// prerequisite (see engine.finish, which stamps Slug from the same
// header the decomposer read it from).
func (c *Context) findCompletion(directiveIDOrSlug string) *CompletionEntry {
	for i := len(c.CompletedDirectives) - 1; i >= 0; i-- {
		entry := &c.CompletedDirectives[i]
		if entry.DirectiveID == directiveIDOrSlug || entry.Slug == directiveIDOrSlug {
			return entry
		}
	}
	return nil
}

func statusWord(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
