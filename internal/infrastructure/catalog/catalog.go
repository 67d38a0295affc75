// Package catalog loads the demo molecule catalog: a YAML file of named
// structures that are imported into the library at startup so a fresh
// deployment has something to look at.  Entries are either a SMILES string
// or an inline structure file; each gets a deterministic ID derived from
// its name, so reloading the file replaces the previous demo set instead
// of accumulating copies.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	dommol "github.com/molscope/molscope/internal/domain/molecule"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// idPrefix marks catalog-owned molecules in the library.
const idPrefix = "catalog-"

// Store is the slice of the molecule service the loader writes through.
// Imports go through the application layer so side effects (metrics, logs)
// stay consistent with user-created molecules.
type Store interface {
	Import(ctx context.Context, mol *dommol.Molecule) (mtypes.Molecule, error)
	Delete(ctx context.Context, id string) error
}

// Loader reads one catalog file and keeps the library's demo set in sync
// with it.  Load is safe to call repeatedly; Watch calls it on every change
// to the file.
type Loader struct {
	store  Store
	path   string
	logger logging.Logger

	mu     sync.Mutex
	loaded []string // IDs imported by the last successful Load

	watchOnce sync.Once
	closeOnce sync.Once
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader binds a loader to one catalog file.
func NewLoader(store Store, path string, opts ...Option) *Loader {
	l := &Loader{
		store:  store,
		path:   path,
		logger: logging.NewNopLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// file is the YAML document layout.
type file struct {
	Molecules []entry `yaml:"molecules"`
}

// entry is one catalog molecule: a name plus either a SMILES string or an
// inline structure file (format names the parser, data holds the payload).
type entry struct {
	Name     string `yaml:"name"`
	SMILES   string `yaml:"smiles"`
	Format   string `yaml:"format"`
	Data     string `yaml:"data"`
	Minimize bool   `yaml:"minimize"`
}

// Load reads the catalog file, builds every entry, and swaps the demo set:
// entries that vanished from the file are deleted, the rest are replaced
// under their stable IDs.  A file that fails to read or build leaves the
// library untouched, so a bad edit never takes the previous catalog down.
// It returns the number of molecules imported.
func (l *Loader) Load(ctx context.Context) (int, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCatalogUnreadable, "catalog: read "+l.path)
	}

	var doc file
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, errors.Wrap(err, errors.CodeCatalogUnreadable, "catalog: parse "+l.path)
	}

	mols, err := buildAll(doc.Molecules)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[string]bool, len(mols))
	for _, m := range mols {
		next[m.ID] = true
	}

	// Drop demo molecules that are no longer in the file.
	for _, id := range l.loaded {
		if next[id] {
			continue
		}
		if err := l.store.Delete(ctx, id); err != nil && !errors.IsNotFound(err) {
			l.logger.Warn("catalog: stale entry not removed",
				logging.String("id", id), logging.Err(err))
		}
	}

	imported := make([]string, 0, len(mols))
	for _, m := range mols {
		// Replace semantics: clear any previous incarnation first.  A miss
		// is the normal first-load case.
		if err := l.store.Delete(ctx, m.ID); err != nil && !errors.IsNotFound(err) {
			l.logger.Warn("catalog: previous entry not removed",
				logging.String("id", m.ID), logging.Err(err))
		}
		if _, err := l.store.Import(ctx, m); err != nil {
			l.logger.Warn("catalog: entry not imported",
				logging.String("id", m.ID),
				logging.String("name", m.Name),
				logging.Err(err))
			continue
		}
		imported = append(imported, m.ID)
	}
	l.loaded = imported

	l.logger.Info("catalog loaded",
		logging.String("path", l.path),
		logging.Int("molecules", len(imported)))
	return len(imported), nil
}

// buildAll turns catalog entries into domain molecules without touching the
// store.  Every entry must build; one broken entry rejects the whole file.
func buildAll(entries []entry) ([]*dommol.Molecule, error) {
	mols := make([]*dommol.Molecule, 0, len(entries))
	seen := make(map[string]string, len(entries))

	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.Newf(errors.CodeInvalidParam,
				"catalog: entry %d has no name", i)
		}
		id := idPrefix + slugify(name)
		if prev, dup := seen[id]; dup {
			return nil, errors.Newf(errors.CodeConflict,
				"catalog: entries %q and %q collapse to the same id %q", prev, name, id)
		}
		seen[id] = name

		mol, err := build(name, e)
		if err != nil {
			return nil, err
		}
		mol.ID = id
		mols = append(mols, mol)
	}
	return mols, nil
}

func build(name string, e entry) (*dommol.Molecule, error) {
	switch {
	case strings.TrimSpace(e.SMILES) != "":
		mol, err := dommol.FromSMILES(e.SMILES, name, e.Minimize)
		if err != nil {
			return nil, errors.Wrap(err, errors.GetCode(err),
				fmt.Sprintf("catalog: entry %q", name))
		}
		return mol, nil

	case strings.TrimSpace(e.Data) != "":
		format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e.Format)), ".")
		if format == "" {
			return nil, errors.Newf(errors.CodeInvalidParam,
				"catalog: entry %q has data but no format", name)
		}
		mol, err := dommol.ParseFile(slugify(name)+"."+format, []byte(e.Data))
		if err != nil {
			return nil, errors.Wrap(err, errors.GetCode(err),
				fmt.Sprintf("catalog: entry %q", name))
		}
		// The catalog name wins over whatever the file itself claims.
		mol.Name = name
		return mol, nil

	default:
		return nil, errors.Newf(errors.CodeInvalidParam,
			"catalog: entry %q needs either smiles or data", name)
	}
}

// slugify folds a display name into the stable ID fragment: lowercase
// alphanumerics with single dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Watch reloads the catalog whenever its file changes.  The watch is on the
// directory, not the file, so editors that save by rename keep working.
// Reload failures are logged and skipped; the last good catalog stays live.
func (l *Loader) Watch(ctx context.Context) error {
	var err error
	l.watchOnce.Do(func() {
		var w *fsnotify.Watcher
		w, err = fsnotify.NewWatcher()
		if err != nil {
			err = errors.Wrap(err, errors.CodeInternal, "catalog: start watcher")
			return
		}
		if addErr := w.Add(filepath.Dir(l.path)); addErr != nil {
			_ = w.Close()
			err = errors.Wrap(addErr, errors.CodeInternal, "catalog: watch "+filepath.Dir(l.path))
			return
		}
		l.watcher = w
		go l.run(ctx, w)
	})
	return err
}

func (l *Loader) run(ctx context.Context, w *fsnotify.Watcher) {
	target := filepath.Clean(l.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if n, err := l.Load(ctx); err != nil {
				l.logger.Warn("catalog: reload skipped", logging.Err(err))
			} else {
				l.logger.Info("catalog reloaded", logging.Int("molecules", n))
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("catalog: watcher error", logging.Err(werr))
		}
	}
}

// Close stops the watcher.  Safe to call whether or not Watch ran.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.watcher != nil {
			err = l.watcher.Close()
		}
	})
	return err
}
