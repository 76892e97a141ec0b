// Package export writes a user's journal to a directory of Markdown files
// and reads such a directory back into a store.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/parser"
	"github.com/starford/journal/internal/storage"
)

// Journal is the part of a store export and import work with.
type Journal interface {
	Notes() []models.Note
	Folders() []models.Folder
	Note(id string) (models.Note, bool)
	FolderOf(n models.Note) models.Folder
	CreateNote(ctx context.Context) (models.Note, error)
	SaveNote(ctx context.Context, n models.Note) (models.Note, error)
	AddFolder(ctx context.Context, name, color string) (models.Folder, error)
	SelectFolder(id string) error
}

var _ Journal = (*notestore.Store)(nil)

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// WithMetrics counts exported notes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithPrune makes Export delete files that no longer belong to any note.
func WithPrune(prune bool) Option {
	return func(e *Exporter) { e.prune = prune }
}

// Exporter moves notes between a Journal and a backup directory.
type Exporter struct {
	dir     storage.Provider
	log     *slog.Logger
	metrics *metrics.Metrics
	prune   bool
}

// New returns an Exporter working on dir.
func New(dir storage.Provider, opts ...Option) *Exporter {
	e := &Exporter{dir: dir, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExportResult summarizes an export run.
type ExportResult struct {
	Written   int
	Unchanged int
	Removed   int
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported       int
	Skipped        int
	FoldersCreated int
}

// FileName returns the path of n's file: <folder>/<title>-<id8>.md, both
// components slugged.
func FileName(n models.Note, folder models.Folder) string {
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return path.Join(slug(folder.Name, "unknown"), slug(n.Title, "note")+"-"+id+".md")
}

// slug lowercases s and collapses every run of characters other than
// letters and digits into one hyphen.
func slug(s, fallback string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

func render(n models.Note, folder models.Folder) ([]byte, error) {
	return parser.Render(parser.Document{
		Meta: parser.Frontmatter{
			ID:      n.ID,
			Title:   n.Title,
			Tags:    n.Tags,
			Folder:  folder.Name,
			Created: n.CreatedAt,
			Updated: n.UpdatedAt,
		},
		Body: n.Content,
	})
}

// Export writes every note of j. Files whose content is unchanged are not
// rewritten.
func (e *Exporter) Export(ctx context.Context, j Journal) (ExportResult, error) {
	var res ExportResult

	existing, err := e.dir.List("")
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	sums := make(map[string]string, len(existing))
	for _, f := range existing {
		sums[f.Path] = f.Checksum
	}

	kept := make(map[string]struct{})
	for _, n := range j.Notes() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		folder := j.FolderOf(n)
		name := FileName(n, folder)
		kept[name] = struct{}{}

		data, err := render(n, folder)
		if err != nil {
			return res, fmt.Errorf("export: note %s: %w", n.ID, err)
		}
		if sums[name] == storage.Checksum(data) {
			res.Unchanged++
			continue
		}
		if err := e.dir.Write(name, data); err != nil {
			return res, fmt.Errorf("export: note %s: %w", n.ID, err)
		}
		res.Written++
		if e.metrics != nil {
			e.metrics.ExportedNotes.Inc()
		}
	}

	if e.prune {
		for _, f := range existing {
			if _, ok := kept[f.Path]; ok {
				continue
			}
			if err := e.dir.Delete(f.Path); err != nil {
				return res, fmt.Errorf("export: prune: %w", err)
			}
			res.Removed++
		}
	}

	e.log.Info("export finished",
		slog.Int("written", res.Written),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("removed", res.Removed))
	return res, nil
}

// Import saves every note file of the directory into j. Notes whose id is
// already present are skipped, so importing an export twice is harmless.
// Folders are matched by name and created when missing; a file without a
// folder goes to the directory it sits in, or to the fallback folder.
func (e *Exporter) Import(ctx context.Context, j Journal) (ImportResult, error) {
	var res ImportResult

	files, err := e.dir.List("")
	if err != nil {
		return res, fmt.Errorf("import: %w", err)
	}

	// Drafts land in the fallback folder unless the file names one.
	if err := j.SelectFolder(notestore.AllFolders); err != nil {
		return res, fmt.Errorf("import: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := e.dir.Read(f.Path)
		if err != nil {
			return res, fmt.Errorf("import: %w", err)
		}
		doc := parser.Parse(data)
		if doc.Meta.ID != "" {
			if _, ok := j.Note(doc.Meta.ID); ok {
				res.Skipped++
				continue
			}
		}

		folderName := doc.Meta.Folder
		if folderName == "" {
			if dir := path.Dir(f.Path); dir != "." {
				folderName = dir
			}
		}
		var folderID string
		if folderName != "" {
			folder, created, err := e.folderByName(ctx, j, folderName)
			if err != nil {
				return res, fmt.Errorf("import: %s: %w", f.Path, err)
			}
			if created {
				res.FoldersCreated++
			}
			folderID = folder.ID
		}

		draft, err := j.CreateNote(ctx)
		if err != nil {
			return res, fmt.Errorf("import: %s: %w", f.Path, err)
		}
		if doc.Meta.Title != "" {
			draft.Title = doc.Meta.Title
		}
		draft.Content = doc.Body
		draft.Tags = doc.Meta.Tags
		if folderID != "" {
			draft.FolderID = folderID
		}
		if _, err := j.SaveNote(ctx, draft); err != nil {
			return res, fmt.Errorf("import: %s: %w", f.Path, err)
		}
		res.Imported++
	}

	e.log.Info("import finished",
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped),
		slog.Int("folders_created", res.FoldersCreated))
	return res, nil
}

func (e *Exporter) folderByName(ctx context.Context, j Journal, name string) (models.Folder, bool, error) {
	for _, f := range j.Folders() {
		if strings.EqualFold(f.Name, name) {
			return f, false, nil
		}
	}
	f, err := j.AddFolder(ctx, name, models.DefaultColor)
	if err != nil {
		return models.Folder{}, false, err
	}
	return f, true, nil
}
