package storage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dommol "github.com/molscope/molscope/internal/domain/molecule"
	"github.com/molscope/molscope/internal/infrastructure/storage"
	"github.com/molscope/molscope/pkg/errors"
)

func newMolecule(t *testing.T, smiles string) *dommol.Molecule {
	t.Helper()
	mol, err := dommol.FromSMILES(smiles, "", false)
	require.NoError(t, err)
	return mol
}

func TestLibrary_PutAndGet(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()
	mol := newMolecule(t, "CCO")

	require.NoError(t, lib.Put(ctx, mol))

	got, err := lib.Get(ctx, mol.ID)
	require.NoError(t, err)
	assert.Equal(t, mol.ID, got.ID)
	assert.Equal(t, "CCO", got.SMILES)
	assert.Len(t, got.Atoms, 3)
}

func TestLibrary_PutDuplicateID(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()
	mol := newMolecule(t, "C")

	require.NoError(t, lib.Put(ctx, mol))
	err := lib.Put(ctx, mol)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}

func TestLibrary_PutRequiresID(t *testing.T) {
	lib := storage.NewLibrary()
	mol := newMolecule(t, "C")
	mol.ID = ""

	err := lib.Put(context.Background(), mol)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestLibrary_GetUnknown(t *testing.T) {
	lib := storage.NewLibrary()

	_, err := lib.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeNotFound))
}

func TestLibrary_ValuesAreIsolated(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()
	mol := newMolecule(t, "CO")
	require.NoError(t, lib.Put(ctx, mol))

	// Mutating the caller's value after Put must not reach the store.
	mol.Atoms[0].X = 999

	got, err := lib.Get(ctx, mol.ID)
	require.NoError(t, err)
	assert.NotEqual(t, 999.0, got.Atoms[0].X)

	// Mutating a retrieved value must not reach the store either.
	got.Atoms[0].X = -999
	again, err := lib.Get(ctx, mol.ID)
	require.NoError(t, err)
	assert.NotEqual(t, -999.0, again.Atoms[0].X)
}

func TestLibrary_Replace(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()
	mol := newMolecule(t, "CCO")
	require.NoError(t, lib.Put(ctx, mol))

	next, err := dommol.Regenerate(mol, true)
	require.NoError(t, err)
	require.NoError(t, lib.Replace(ctx, next))

	got, err := lib.Get(ctx, mol.ID)
	require.NoError(t, err)
	assert.True(t, got.Minimized)

	n, err := lib.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "replace must not grow the library")
}

func TestLibrary_ReplaceUnknown(t *testing.T) {
	lib := storage.NewLibrary()
	mol := newMolecule(t, "C")

	err := lib.Replace(context.Background(), mol)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeNotFound))
}

func TestLibrary_Delete(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()
	mol := newMolecule(t, "C")
	require.NoError(t, lib.Put(ctx, mol))

	require.NoError(t, lib.Delete(ctx, mol.ID))

	_, err := lib.Get(ctx, mol.ID)
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeNotFound))

	err = lib.Delete(ctx, mol.ID)
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeNotFound))
}

func TestLibrary_ListOrdersByID(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, lib.Put(ctx, newMolecule(t, "C")))
	}

	mols, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, mols, 5)
	for i := 1; i < len(mols); i++ {
		assert.Less(t, mols[i-1].ID, mols[i].ID)
	}
}

func TestLibrary_ListEmpty(t *testing.T) {
	lib := storage.NewLibrary()

	mols, err := lib.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mols)
}

func TestLibrary_ConcurrentAccess(t *testing.T) {
	lib := storage.NewLibrary()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				m, err := dommol.FromSMILES("CC", "", false)
				if !assert.NoError(t, err) {
					return
				}
				m.ID = fmt.Sprintf("mol-%d-%d", i, j)
				assert.NoError(t, lib.Put(ctx, m))
				_, _ = lib.Get(ctx, m.ID)
				_, _ = lib.List(ctx)
			}
		}(i)
	}
	wg.Wait()

	n, err := lib.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 160, n)
}
