package dataset

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/housing/internal/config"
	"github.com/stwalsh4118/housing/internal/models"
	"github.com/stwalsh4118/housing/internal/repository"
)

// PostgresLoader reads the three tables through a RecordRepository.
type PostgresLoader struct {
	repo repository.RecordRepository
}

// NewPostgresLoader creates a PostgresLoader.
func NewPostgresLoader(repo repository.RecordRepository) *PostgresLoader {
	return &PostgresLoader{repo: repo}
}

// Source implements Loader.
func (l *PostgresLoader) Source() string {
	return config.SourcePostgres
}

// Load queries the three tables concurrently.
func (l *PostgresLoader) Load(ctx context.Context) (*Tables, error) {
	var (
		sales       []models.RawSale
		assessments []models.AssessmentRecord
		aDropped    int
		parcels     *repository.ParcelRows
		pDropped    int
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		sales, err = l.repo.ListSales(ctx)
		return err
	})
	g.Go(func() (err error) {
		assessments, aDropped, err = l.repo.ListAssessments(ctx)
		return err
	})
	g.Go(func() (err error) {
		parcels, pDropped, err = l.repo.ListParcels(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Tables{
		Sales:              sales,
		Assessments:        assessments,
		Parcels:            parcels.Parcels,
		AssessmentTracked:  parcels.AssessmentTracked,
		DroppedAssessments: aDropped,
		DroppedParcels:     pDropped,
	}, nil
}
