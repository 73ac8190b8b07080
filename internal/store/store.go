// Package store implements the directive store (C3): a directory-per-state
// on-disk queue. Five lifecycle folders plus a sibling staging directory
// for claims. Grounded on original_source/agents/engage_agent.py's
// _claim_directive/move_directive and directive_agent.py's file-writing
// methods, reworked around explicit struct construction instead of the
// originals' module-level singletons.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
)

// Folder names, fixed per §6. LegacyExemplar is accepted as an alternate
// name for Exemplar when scanning existing workspaces.
const (
	FolderNew        = "new"
	FolderSuccess    = "success"
	FolderFailed     = "failed"
	FolderSlow       = "slow"
	FolderExemplar   = "exemplar"
	LegacyExemplar   = "possible-exemplars"
	FolderProcessing = "processing"
)

var terminalFolders = []string{FolderSuccess, FolderFailed, FolderSlow, FolderExemplar, LegacyExemplar}

// Store owns the root directory containing the five lifecycle folders.
type Store struct {
	root      string
	sanitizer collab.Sanitizer
	renderer  collab.Renderer
	log       *logging.Logger
}

// New constructs a Store rooted at dir, creating the lifecycle folders
// if they don't already exist.
func New(dir string, sanitizer collab.Sanitizer, renderer collab.Renderer, log *logging.Logger) (*Store, error) {
	s := &Store{root: dir, sanitizer: sanitizer, renderer: renderer, log: log}

	for _, f := range []string{FolderNew, FolderSuccess, FolderFailed, FolderSlow, FolderExemplar, FolderProcessing} {
		if err := os.MkdirAll(filepath.Join(dir, f), 0755); err != nil {
			return nil, fmt.Errorf("store: create folder %s: %w", f, err)
		}
	}

	return s, nil
}

// Root returns the directory the store is rooted at.
func (s *Store) Root() string { return s.root }

func (s *Store) path(folder, filename string) string {
	return filepath.Join(s.root, folder, filename)
}

// Candidate is one directive file discovered in the new/ folder along
// with the parsed document, ready for prerequisite evaluation.
type Candidate struct {
	Path      string
	Directive directive.Directive
	Age       time.Duration
}

// ListReady enumerates `new`, parses each file, discards any whose
// prerequisites are not all satisfied, and returns the remainder sorted
// by (priority descending, age descending, id ascending) per §4.1.
func (s *Store) ListReady() ([]Candidate, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, FolderNew))
	if err != nil {
		return nil, fmt.Errorf("store: read new: %w", err)
	}

	completed, err := s.completedIdentifiers()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []Candidate
	for _, e := range entries {
		if e.IsDir() || IsOutputArtifact(e.Name()) {
			continue
		}
		full := s.path(FolderNew, e.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			s.log.Warn("store: read candidate failed, skipping", zap.Error(err))
			continue
		}
		d, err := directive.Decode(string(raw))
		if err != nil {
			s.log.Warn("store: parse candidate failed, skipping", zap.String("path", full), zap.Error(err))
			continue
		}
		d.Path = full

		if !prerequisitesMet(d.Header.Prerequisites, completed) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Candidate{Path: full, Directive: d, Age: now.Sub(info.ModTime())})
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := priorityRank(out[i].Directive.Header.Priority), priorityRank(out[j].Directive.Header.Priority)
		if pi != pj {
			return pi > pj
		}
		if out[i].Age != out[j].Age {
			return out[i].Age > out[j].Age
		}
		return out[i].Directive.Header.ID < out[j].Directive.Header.ID
	})

	return out, nil
}

func priorityRank(p directive.Priority) int {
	switch p {
	case directive.PriorityHigh:
		return 3
	case directive.PriorityMedium:
		return 2
	case directive.PriorityLow:
		return 1
	default:
		return 1
	}
}

// completedIdentifiers collects every id, slug, and recorded external-todo
// id (claude_todo_id) that appears in a terminal folder, for prerequisite
// resolution: a prerequisite naming any one of the three is satisfied.
func (s *Store) completedIdentifiers() (map[string]bool, error) {
	set := make(map[string]bool)
	for _, folder := range terminalFolders {
		dirPath := filepath.Join(s.root, folder)
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("store: read %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.IsDir() || IsOutputArtifact(e.Name()) {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dirPath, e.Name()))
			if err != nil {
				continue
			}
			d, err := directive.Decode(string(raw))
			if err != nil {
				continue
			}
			set[d.Header.ID] = true
			set[d.Header.Slug] = true
			if d.Header.ClaudeTodoID != "" {
				set[d.Header.ClaudeTodoID] = true
			}
		}
	}
	return set, nil
}

func prerequisitesMet(prereqs []string, completed map[string]bool) bool {
	for _, p := range prereqs {
		if !completed[p] {
			return false
		}
	}
	return true
}

// allFolders lists every lifecycle folder a directive can currently sit
// in, new and processing included, for whole-tree scans (used by the
// bridge's project-a-todo-list operation).
var allFolders = append([]string{FolderNew, FolderProcessing}, terminalFolders...)

// ScanAll reads every directive file across every lifecycle folder and
// returns them grouped by the folder they were found in.
func (s *Store) ScanAll() (map[string][]directive.Directive, error) {
	out := make(map[string][]directive.Directive, len(allFolders))
	for _, folder := range allFolders {
		dirPath := filepath.Join(s.root, folder)
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("store: read %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.IsDir() || IsOutputArtifact(e.Name()) {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dirPath, e.Name()))
			if err != nil {
				s.log.Warn("store: read during scan failed, skipping", zap.Error(err))
				continue
			}
			d, err := directive.Decode(string(raw))
			if err != nil {
				continue
			}
			d.Path = filepath.Join(dirPath, e.Name())
			out[folder] = append(out[folder], d)
		}
	}
	return out, nil
}

// Claim attempts to acquire exclusive processing rights over a candidate
// by renaming it into the processing/ staging folder and immediately
// back — the double-rename protocol from engage_agent.py's
// _claim_directive. If the file no longer exists, another worker already
// claimed it; any other rename failure makes the candidate unavailable
// this pass. Both cases return (false, nil): neither is an error worth
// aborting the loop over.
func (s *Store) Claim(path string) (bool, error) {
	filename := filepath.Base(path)
	staging := s.path(FolderProcessing, filename)

	if err := os.Rename(path, staging); err != nil {
		return false, nil
	}

	if err := os.Rename(staging, path); err != nil {
		return false, nil
	}

	return true, nil
}

// OutputPathFor returns the path of the output artifact paired with the
// directive at directivePath, derived deterministically from its
// filename so the pairing survives renames without a lookup table.
func OutputPathFor(directivePath string) string {
	return strings.TrimSuffix(directivePath, ".md") + "-out.md"
}

const outputArtifactSuffix = "-out.md"

// IsOutputArtifact reports whether filename names an output artifact
// rather than a directive, by the fixed suffix OutputPathFor derives
// output filenames with. Every directive-file scan in this package must
// skip these, since output artifacts now carry their own YAML
// frontmatter (§6) and would otherwise decode as spurious directives.
func IsOutputArtifact(filename string) bool {
	return strings.HasSuffix(filename, outputArtifactSuffix)
}

// UpdateOutput rewrites the output artifact paired with d in place,
// per §4.6 step 6.
func (s *Store) UpdateOutput(d directive.Directive, artifact directive.OutputArtifact) error {
	body, err := directive.EncodeOutput(artifact)
	if err != nil {
		return fmt.Errorf("store: encode output artifact: %w", err)
	}
	if err := os.WriteFile(OutputPathFor(d.Path), []byte(body), 0644); err != nil {
		return fmt.Errorf("store: update output artifact: %w", err)
	}
	return nil
}

// Relocate moves a claimed directive, and its paired output artifact, to
// a terminal folder, rewriting the directive's status field in place
// before the move, per §4.6 step 9.
func (s *Store) Relocate(d directive.Directive, folder string) error {
	status := string(directive.StatusCompleted)
	if folder == FolderFailed {
		status = string(directive.StatusFailed)
	}
	d.Header.Status = status

	encoded, err := directive.Encode(d)
	if err != nil {
		return fmt.Errorf("store: encode for relocate: %w", err)
	}
	if err := os.WriteFile(d.Path, []byte(encoded), 0644); err != nil {
		return fmt.Errorf("store: rewrite status before relocate: %w", err)
	}

	dest := s.path(folder, filepath.Base(d.Path))
	if err := os.Rename(d.Path, dest); err != nil {
		return fmt.Errorf("store: relocate to %s: %w", folder, err)
	}

	outSrc := OutputPathFor(d.Path)
	if _, err := os.Stat(outSrc); err == nil {
		outDest := OutputPathFor(dest)
		if err := os.Rename(outSrc, outDest); err != nil {
			return fmt.Errorf("store: relocate output artifact to %s: %w", folder, err)
		}
	}
	return nil
}

// ClassifyOutcome maps a completion outcome to the destination folder
// per §4.6 step 9's ordering: failure first, then exemplar, then slow,
// else success.
func ClassifyOutcome(success bool, duration time.Duration, exemplarEnabled bool, exemplarThreshold, slowThreshold time.Duration) string {
	if !success {
		return FolderFailed
	}
	if exemplarEnabled && duration <= exemplarThreshold {
		return FolderExemplar
	}
	if duration > slowThreshold {
		return FolderSlow
	}
	return FolderSuccess
}

// WriteNew writes a freshly decomposed directive, and its paired
// placeholder-valued output artifact, into the `new` folder. Filenames
// derive from slug+id and are filtered through the sanitizer; a rejected
// name falls back to the bare id.
func (s *Store) WriteNew(d directive.Directive) error {
	filename, err := s.sanitizer.SanitizeFilename(fmt.Sprintf("%s-%s.md", d.Header.Slug, d.Header.ID))
	if err != nil {
		filename = d.Header.ID + ".md"
	}

	encoded, err := directive.Encode(d)
	if err != nil {
		return fmt.Errorf("store: encode new directive: %w", err)
	}

	full := s.path(FolderNew, filename)
	if err := os.WriteFile(full, []byte(encoded), 0644); err != nil {
		return fmt.Errorf("store: write new directive: %w", err)
	}

	return s.writePlaceholderOutput(d, full)
}

// writePlaceholderOutput writes the output artifact that accompanies a
// new directive, with placeholder metrics, alongside it in the `new`
// folder. Its filename is derived deterministically from the
// directive's own filename (see OutputPathFor) so the pairing survives
// every later rename without a lookup table.
func (s *Store) writePlaceholderOutput(d directive.Directive, directivePath string) error {
	artifact := directive.OutputArtifact{
		DirectiveID: d.Header.ID,
		Slug:        d.Header.Slug,
		Priority:    d.Header.Priority,
		Success:     false,
		Platform:    d.Header.Platform,
		Model:       d.Header.Model,
	}

	rendered, renderErr := s.renderer.Render("directive-out", map[string]string{
		"STATUS": "pending",
	})
	body, err := directive.EncodeOutput(artifact)
	if err != nil {
		return fmt.Errorf("store: encode placeholder output artifact: %w", err)
	}
	if renderErr == nil && rendered != "" {
		// The renderer succeeded; its output still needs the fixed
		// header fields the store itself is responsible for, so the
		// built-in encoding remains the document of record and the
		// rendered text is appended as informational context only.
		body = body + "\n<!-- template: " + rendered + " -->\n"
	}

	return os.WriteFile(OutputPathFor(directivePath), []byte(body), 0644)
}
