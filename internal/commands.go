package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/export"
	"github.com/starford/journal/internal/mcpserver"
	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/session"
	"github.com/starford/journal/internal/storage"
	"github.com/starford/journal/internal/ui"
)

// userStore is a loaded store for one account, outside of the HTTP server.
type userStore struct {
	store   *notestore.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	close   func()
}

// openUserStore loads the store of email, creating the account when needed.
func openUserStore(ctx context.Context, app *application, email string) (*userStore, error) {
	logger := newLogger(app.logOut, app.level)
	slog.SetDefault(logger)

	m := metrics.New()
	backend, err := openBackend(ctx, app.config.Storage, m)
	if err != nil {
		return nil, err
	}

	u, err := auth.NewService(backend, app.config.Auth.Service()).EnsureUser(ctx, email)
	if err != nil {
		backend.Close()
		return nil, err
	}

	sessions := session.NewManager(backend,
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithStoreOptions(app.config.Journal.StoreOptions()...),
	)
	store, err := sessions.Open(ctx, u)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &userStore{
		store:   store,
		metrics: m,
		logger:  logger,
		close: func() {
			sessions.Close(u)
			backend.Close()
		},
	}, nil
}

func (a *application) accountEmail() string {
	if a.config.MCP.UserEmail != "" {
		return a.config.MCP.UserEmail
	}
	return a.config.Auth.LocalEmail
}

// RunMCP serves the journal of the configured account over stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	us, err := openUserStore(ctx, app, app.accountEmail())
	if err != nil {
		return err
	}
	defer us.close()

	us.logger.Info("MCP server starting", slog.String("user", app.accountEmail()))
	return mcpserver.New(us.store, app.version).ServeStdio()
}

func exportDir(path string) (*storage.Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return storage.OpenDir(path)
}

// RunExport writes the account's notes to dir, or to export.dir when empty.
func RunExport(ctx context.Context, dir string, prune bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = app.config.Export.Dir
	}
	backup, err := exportDir(dir)
	if err != nil {
		return err
	}
	defer backup.Close()
	us, err := openUserStore(ctx, app, app.accountEmail())
	if err != nil {
		return err
	}
	defer us.close()

	res, err := export.New(backup,
		export.WithLogger(us.logger),
		export.WithMetrics(us.metrics),
		export.WithPrune(prune),
	).Export(ctx, us.store)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "exported %d notes to %s (%d unchanged, %d removed)\n",
		res.Written, backup.Path(), res.Unchanged, res.Removed)
	return nil
}

// RunImport saves every note file found in dir into the account.
func RunImport(ctx context.Context, dir string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = app.config.Export.Dir
	}
	backup, err := storage.OpenDir(dir)
	if err != nil {
		return err
	}
	defer backup.Close()
	us, err := openUserStore(ctx, app, app.accountEmail())
	if err != nil {
		return err
	}
	defer us.close()

	res, err := export.New(backup, export.WithLogger(us.logger)).Import(ctx, us.store)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "imported %d notes (%d already present, %d folders created)\n",
		res.Imported, res.Skipped, res.FoldersCreated)
	return nil
}

// ListQuery selects the notes printed by List.
type ListQuery struct {
	Search  string
	Folder  string
	Tags    []string
	Folders bool
}

// List prints the account's notes passing q, or its folders.
func List(ctx context.Context, q ListQuery, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(io.Discard)}, opts...))
	if err != nil {
		return err
	}
	us, err := openUserStore(ctx, app, app.accountEmail())
	if err != nil {
		return err
	}
	defer us.close()

	if q.Folders {
		counts := make(map[string]int)
		for _, n := range us.store.Notes() {
			counts[n.FolderID]++
		}
		_, err := io.WriteString(app.out, ui.FormatFolderList(us.store.Folders(), counts))
		return err
	}

	c := notestore.Criteria{Search: q.Search, Tags: notestore.NormalizeTags(q.Tags)}
	if q.Folder != "" {
		for _, f := range us.store.Folders() {
			if f.ID == q.Folder || f.Name == q.Folder {
				c.FolderID = f.ID
			}
		}
		if c.FolderID == "" {
			return fmt.Errorf("folder not found: %s", q.Folder)
		}
	}
	for _, n := range us.store.Query(c) {
		if _, err := io.WriteString(app.out, ui.FormatNoteListItem(n, us.store.FolderOf(n))); err != nil {
			return err
		}
	}
	return nil
}
