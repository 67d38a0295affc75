// Package molecule provides the application-level service for the molecule
// library: building structures from SMILES or uploaded files, listing and
// retrieving them, regenerating geometry, and answering distance queries.
// It sits between the HTTP handlers and the domain logic.
package molecule

import (
	"context"
	"path/filepath"
	"strings"

	dommol "github.com/molscope/molscope/internal/domain/molecule"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// Service is the molecule application surface consumed by the HTTP layer and
// the demo catalog loader.
type Service interface {
	// Create builds a molecule from a SMILES string and stores it.
	Create(ctx context.Context, req mtypes.CreateRequest) (mtypes.Molecule, error)

	// Upload parses an uploaded structure file and stores the result.
	Upload(ctx context.Context, filename string, data []byte) (mtypes.Molecule, error)

	// Get returns one stored molecule with its derived descriptors.
	Get(ctx context.Context, id string) (mtypes.Molecule, error)

	// List returns compact summaries of the whole library, ordered by ID.
	List(ctx context.Context) (mtypes.ListResponse, error)

	// Delete removes a molecule from the library.
	Delete(ctx context.Context, id string) error

	// UpdateGeometry rebuilds a molecule's coordinates from its SMILES at the
	// requested spacing and replaces the stored value under the same ID.
	UpdateGeometry(ctx context.Context, id string, req mtypes.UpdateGeometryRequest) (mtypes.Molecule, error)

	// Distance measures the separation of two atoms addressed by index.
	Distance(ctx context.Context, id string, atom1, atom2 int) (mtypes.DistanceResponse, error)

	// BondDistances measures the length of every declared bond.
	BondDistances(ctx context.Context, id string) (mtypes.BondDistancesResponse, error)

	// Import stores an externally built molecule, keeping its ID.  The demo
	// catalog uses it to load fixtures at startup and on reload.
	Import(ctx context.Context, mol *dommol.Molecule) (mtypes.Molecule, error)

	// Fetch returns the stored domain entity.  Viewer sessions load from it.
	Fetch(ctx context.Context, id string) (*dommol.Molecule, error)
}

// Option customises service construction.
type Option func(*service)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the application metric set.
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

type service struct {
	repo    dommol.Repository
	logger  logging.Logger
	metrics *metrics.AppMetrics
}

// NewService creates the molecule application service on top of a library
// repository.
func NewService(repo dommol.Repository, opts ...Option) Service {
	s := &service{
		repo:    repo,
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopAppMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, req mtypes.CreateRequest) (mtypes.Molecule, error) {
	const format = "smiles"
	if strings.TrimSpace(req.SMILES) == "" {
		s.metrics.MoleculeParsesTotal.WithLabelValues(format, "error").Inc()
		return mtypes.Molecule{}, errors.New(errors.CodeInvalidParam, "smiles is required")
	}

	timer := metrics.NewTimer(s.metrics.MoleculeParseDuration.WithLabelValues(format))
	mol, err := dommol.FromSMILES(req.SMILES, req.Name, req.Minimize)
	timer.ObserveDuration()
	if err != nil {
		s.metrics.MoleculeParsesTotal.WithLabelValues(format, "error").Inc()
		return mtypes.Molecule{}, err
	}
	s.metrics.MoleculeParsesTotal.WithLabelValues(format, "ok").Inc()

	if err := s.repo.Put(ctx, mol); err != nil {
		return mtypes.Molecule{}, err
	}
	s.syncLibrarySize(ctx)

	s.logger.Info("molecule created from smiles",
		logging.String("molecule_id", mol.ID),
		logging.String("name", mol.Name),
		logging.Int("atoms", mol.AtomCount()),
		logging.Bool("minimized", mol.Minimized))
	return mol.ToDTO(), nil
}

func (s *service) Upload(ctx context.Context, filename string, data []byte) (mtypes.Molecule, error) {
	format := formatLabel(filename)

	timer := metrics.NewTimer(s.metrics.MoleculeParseDuration.WithLabelValues(format))
	mol, err := dommol.ParseFile(filename, data)
	timer.ObserveDuration()
	if err != nil {
		s.metrics.MoleculeParsesTotal.WithLabelValues(format, "error").Inc()
		s.logger.Warn("structure file rejected",
			logging.String("filename", filename), logging.Err(err))
		return mtypes.Molecule{}, err
	}
	s.metrics.MoleculeParsesTotal.WithLabelValues(format, "ok").Inc()

	if err := s.repo.Put(ctx, mol); err != nil {
		return mtypes.Molecule{}, err
	}
	s.syncLibrarySize(ctx)

	s.logger.Info("molecule uploaded",
		logging.String("molecule_id", mol.ID),
		logging.String("filename", filename),
		logging.Int("atoms", mol.AtomCount()),
		logging.Int("bonds", mol.BondCount()))
	return mol.ToDTO(), nil
}

func (s *service) Get(ctx context.Context, id string) (mtypes.Molecule, error) {
	mol, err := s.repo.Get(ctx, id)
	if err != nil {
		return mtypes.Molecule{}, err
	}
	return mol.ToDTO(), nil
}

func (s *service) List(ctx context.Context) (mtypes.ListResponse, error) {
	mols, err := s.repo.List(ctx)
	if err != nil {
		return mtypes.ListResponse{}, err
	}
	summaries := make([]mtypes.Summary, len(mols))
	for i, mol := range mols {
		summaries[i] = mol.Summary()
	}
	return mtypes.ListResponse{Molecules: summaries, Total: len(summaries)}, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.syncLibrarySize(ctx)
	s.logger.Info("molecule deleted", logging.String("molecule_id", id))
	return nil
}

func (s *service) UpdateGeometry(ctx context.Context, id string, req mtypes.UpdateGeometryRequest) (mtypes.Molecule, error) {
	mol, err := s.repo.Get(ctx, id)
	if err != nil {
		return mtypes.Molecule{}, err
	}

	next, err := dommol.Regenerate(mol, req.Minimize)
	if err != nil {
		return mtypes.Molecule{}, err
	}
	if err := s.repo.Replace(ctx, next); err != nil {
		return mtypes.Molecule{}, err
	}

	s.logger.Info("molecule geometry regenerated",
		logging.String("molecule_id", id),
		logging.Bool("minimized", next.Minimized))
	return next.ToDTO(), nil
}

func (s *service) Distance(ctx context.Context, id string, atom1, atom2 int) (mtypes.DistanceResponse, error) {
	mol, err := s.repo.Get(ctx, id)
	if err != nil {
		return mtypes.DistanceResponse{}, err
	}
	d, err := dommol.AtomDistance(mol, atom1, atom2)
	if err != nil {
		return mtypes.DistanceResponse{}, err
	}
	return mtypes.DistanceResponse{Atom1: atom1, Atom2: atom2, Distance: d}, nil
}

func (s *service) BondDistances(ctx context.Context, id string) (mtypes.BondDistancesResponse, error) {
	mol, err := s.repo.Get(ctx, id)
	if err != nil {
		return mtypes.BondDistancesResponse{}, err
	}
	return mtypes.BondDistancesResponse{
		MoleculeID: id,
		Distances:  dommol.BondDistances(mol),
	}, nil
}

func (s *service) Import(ctx context.Context, mol *dommol.Molecule) (mtypes.Molecule, error) {
	if mol == nil {
		return mtypes.Molecule{}, errors.New(errors.CodeInvalidParam, "no molecule provided")
	}
	if err := s.repo.Put(ctx, mol); err != nil {
		return mtypes.Molecule{}, err
	}
	s.syncLibrarySize(ctx)
	return mol.ToDTO(), nil
}

func (s *service) Fetch(ctx context.Context, id string) (*dommol.Molecule, error) {
	return s.repo.Get(ctx, id)
}

// syncLibrarySize republishes the library gauge after a mutation.
func (s *service) syncLibrarySize(ctx context.Context) {
	n, err := s.repo.Len(ctx)
	if err != nil {
		return
	}
	s.metrics.LibrarySize.WithLabelValues().Set(float64(n))
}

// formatLabel derives the metric label from an upload filename: the
// lower-case extension without the dot, with a transparent ".gz" suffix
// stripped ("caffeine.pdb.gz" → "pdb").  Unknown extensions map to "unknown"
// to keep the label set bounded.
func formatLabel(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	base = strings.TrimSuffix(base, ".gz")
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	switch ext {
	case "pdb", "mol", "sdf", "xyz":
		return ext
	default:
		return "unknown"
	}
}
