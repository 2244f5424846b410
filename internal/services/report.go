package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/models"
)

// Report gathers every dashboard view for the workbook export and the
// terminal summary.
type Report struct {
	Dataset     *DatasetInfo
	Overview    *analytics.Overview
	Trends      *analytics.Trends
	Disparity   *Disparity
	Ownership   *analytics.OwnershipSummary
	TopOwners   *OwnerRanking
	YearlySales []models.YearlyStat
	Volume      []models.YearCount
	Assessments []models.AssessmentYearStat
}

// CollectReport runs every view against the current dataset concurrently.
// ownerLimit bounds the owner ranking, sorted by property count.
func CollectReport(ctx context.Context, svc AnalysisService, ownerLimit int) (*Report, error) {
	r := &Report{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		r.Dataset, err = svc.DatasetInfo(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Overview, err = svc.Overview(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Trends, err = svc.Trends(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Disparity, err = svc.IncomeDisparity(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Ownership, err = svc.OwnershipSummary(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.TopOwners, err = svc.TopOwners(ctx, analytics.SortByProperties, ownerLimit)
		return err
	})
	g.Go(func() (err error) {
		r.YearlySales, err = svc.YearlySales(ctx, analytics.DefaultMinYear)
		return err
	})
	g.Go(func() (err error) {
		r.Volume, err = svc.SalesVolume(ctx, analytics.DefaultMinYear)
		return err
	})
	g.Go(func() (err error) {
		r.Assessments, err = svc.YearlyAssessments(ctx, analytics.DefaultMinYear)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
