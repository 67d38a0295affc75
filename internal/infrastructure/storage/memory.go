// Package storage provides the process-local molecule library: an in-memory,
// ID-ordered store behind the domain repository contract.  The platform keeps
// no durable state; restarts start from an empty library plus whatever the
// demo catalog seeds.
package storage

import (
	"context"
	"sync"

	"github.com/tidwall/btree"

	dommol "github.com/molscope/molscope/internal/domain/molecule"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/pkg/errors"
)

// entry is the tree item: molecules ordered by ID.
type entry struct {
	id  string
	mol *dommol.Molecule
}

func entryLess(a, b entry) bool { return a.id < b.id }

var _ dommol.Repository = (*Library)(nil)

// Library is a btree-backed in-memory molecule store.  Values are cloned on
// the way in and out, so no caller ever shares backing arrays with the store.
// Safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[entry]
	logger logging.Logger
}

// LibraryOption customises library construction.
type LibraryOption func(*Library)

// WithLogger sets the library logger.
func WithLogger(logger logging.Logger) LibraryOption {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary returns an empty molecule library.
func NewLibrary(opts ...LibraryOption) *Library {
	l := &Library{
		tree:   btree.NewBTreeG(entryLess),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Put stores a new molecule under its ID.
func (l *Library) Put(_ context.Context, mol *dommol.Molecule) error {
	if mol == nil || mol.ID == "" {
		return errors.New(errors.CodeInvalidParam, "molecule must carry an ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tree.Get(entry{id: mol.ID}); ok {
		return errors.New(errors.CodeConflict, "a molecule with this ID is already stored").
			WithDetail(mol.ID)
	}
	l.tree.Set(entry{id: mol.ID, mol: mol.Clone()})
	l.logger.Debug("molecule stored", logging.String("molecule_id", mol.ID))
	return nil
}

// Get retrieves a molecule by ID.
func (l *Library) Get(_ context.Context, id string) (*dommol.Molecule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	item, ok := l.tree.Get(entry{id: id})
	if !ok {
		return nil, notFound(id)
	}
	return item.mol.Clone(), nil
}

// Replace swaps the stored molecule carrying mol.ID for mol.
func (l *Library) Replace(_ context.Context, mol *dommol.Molecule) error {
	if mol == nil || mol.ID == "" {
		return errors.New(errors.CodeInvalidParam, "molecule must carry an ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tree.Get(entry{id: mol.ID}); !ok {
		return notFound(mol.ID)
	}
	l.tree.Set(entry{id: mol.ID, mol: mol.Clone()})
	return nil
}

// Delete removes a molecule by ID.
func (l *Library) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tree.Delete(entry{id: id}); !ok {
		return notFound(id)
	}
	l.logger.Debug("molecule removed", logging.String("molecule_id", id))
	return nil
}

// List returns all stored molecules ordered by ID.
func (l *Library) List(_ context.Context) ([]*dommol.Molecule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*dommol.Molecule, 0, l.tree.Len())
	l.tree.Scan(func(item entry) bool {
		out = append(out, item.mol.Clone())
		return true
	})
	return out, nil
}

// Len reports the number of stored molecules.
func (l *Library) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Len(), nil
}

func notFound(id string) error {
	return errors.New(errors.CodeMoleculeNotFound, "molecule not found").WithDetail(id)
}
