package molecule

import (
	"context"
)

// Repository is the storage contract for the molecule library.  The platform
// ships a process-local implementation; nothing in the domain assumes
// durability, and implementations must be safe for concurrent use.
type Repository interface {
	// Put stores a new molecule under its ID.
	// Returns errors.CodeConflict if the ID is already taken.
	Put(ctx context.Context, mol *Molecule) error

	// Get retrieves a molecule by ID.
	// Returns errors.CodeMoleculeNotFound if no molecule has the given ID.
	Get(ctx context.Context, id string) (*Molecule, error)

	// Replace swaps the stored molecule that has mol.ID for mol, used when
	// geometry regeneration produces a successor value.
	// Returns errors.CodeMoleculeNotFound if the ID is unknown.
	Replace(ctx context.Context, mol *Molecule) error

	// Delete removes a molecule by ID.
	// Returns errors.CodeMoleculeNotFound if the ID is unknown.
	Delete(ctx context.Context, id string) error

	// List returns all stored molecules ordered by ID.
	List(ctx context.Context) ([]*Molecule, error)

	// Len reports the number of stored molecules.
	Len(ctx context.Context) (int, error)
}
