package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/housing/internal/config"
	"github.com/stwalsh4118/housing/internal/models"
)

// Column names located by header.
const (
	colParcelNumber   = "ParcelNumber"
	colSaleDate       = "SaleDate"
	colSaleAmount     = "SaleAmount"
	colTaxYear        = "TaxYear"
	colTotalValue     = "TotalValue"
	colStreetNumber   = "StreetNumber"
	colStreetName     = "StreetName"
	colOwnerName      = "OwnerName"
	colOwnerCityState = "OwnerCityState"
	colLotSquareFeet  = "LotSquareFeet"
	colAssessment     = "Assessment"
)

// CSVLoader reads the three tables from CSV files with a header row.
type CSVLoader struct {
	SalesPath       string
	AssessmentsPath string
	ParcelsPath     string
}

// NewCSVLoader creates a CSVLoader for the files named in cfg.
func NewCSVLoader(cfg config.DataConfig) *CSVLoader {
	return &CSVLoader{
		SalesPath:       cfg.SalesPath(),
		AssessmentsPath: cfg.AssessmentsPath(),
		ParcelsPath:     cfg.ParcelsPath(),
	}
}

// Source implements Loader.
func (l *CSVLoader) Source() string {
	return config.SourceCSV
}

// Load reads the three files concurrently.
func (l *CSVLoader) Load(ctx context.Context) (*Tables, error) {
	var (
		sales       []models.RawSale
		assessments []models.AssessmentRecord
		parcels     []models.ParcelRecord
		aDropped    int
		pDropped    int
		tracked     bool
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return withFile(ctx, l.SalesPath, func(t *csvTable) (err error) {
			sales, err = readSales(t)
			return err
		})
	})
	g.Go(func() error {
		return withFile(ctx, l.AssessmentsPath, func(t *csvTable) (err error) {
			assessments, aDropped, err = readAssessments(t)
			return err
		})
	})
	g.Go(func() error {
		return withFile(ctx, l.ParcelsPath, func(t *csvTable) (err error) {
			parcels, tracked, pDropped, err = readParcels(t)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Tables{
		Sales:              sales,
		Assessments:        assessments,
		Parcels:            parcels,
		AssessmentTracked:  tracked,
		DroppedAssessments: aDropped,
		DroppedParcels:     pDropped,
	}, nil
}

// csvTable iterates the data rows of a CSV file and resolves columns by
// header name.
type csvTable struct {
	path    string
	reader  *csv.Reader
	columns map[string]int
	ctx     context.Context
}

func withFile(ctx context.Context, path string, fn func(*csvTable) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := newCSVTable(ctx, path, f)
	if err != nil {
		return err
	}
	return fn(t)
}

func newCSVTable(ctx context.Context, path string, r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header row", path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	return &csvTable{
		path:    path,
		reader:  reader,
		columns: columns,
		ctx:     ctx,
	}, nil
}

// require returns the indexes of the named columns or an error naming the
// first one that is missing.
func (t *csvTable) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing required column %q", t.path, name)
		}
		idx[i] = col
	}
	return idx, nil
}

// optional returns the index of a column, or -1 when absent.
func (t *csvTable) optional(name string) int {
	if col, ok := t.columns[name]; ok {
		return col
	}
	return -1
}

// each calls fn for every data row. It stops early when the context is done.
func (t *csvTable) each(fn func(record []string)) error {
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := t.ctx.Err(); err != nil {
				return err
			}
		}

		record, err := t.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s line %d: %w", t.path, line, err)
		}
		fn(record)
	}
}

// field returns record[col] or "" when the row is short.
func field(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return record[col]
}

func readSales(t *csvTable) ([]models.RawSale, error) {
	cols, err := t.require(colParcelNumber, colSaleDate, colSaleAmount)
	if err != nil {
		return nil, err
	}

	sales := []models.RawSale{}
	err = t.each(func(record []string) {
		sales = append(sales, models.RawSale{
			ParcelNumber: strings.TrimSpace(field(record, cols[0])),
			SaleDate:     field(record, cols[1]),
			SaleAmount:   field(record, cols[2]),
		})
	})
	return sales, err
}

func readAssessments(t *csvTable) ([]models.AssessmentRecord, int, error) {
	cols, err := t.require(colParcelNumber, colTaxYear, colTotalValue, colStreetNumber, colStreetName)
	if err != nil {
		return nil, 0, err
	}

	records := []models.AssessmentRecord{}
	dropped := 0
	err = t.each(func(record []string) {
		rec, ok := models.ParseAssessment(
			field(record, cols[0]),
			field(record, cols[1]),
			field(record, cols[2]),
			field(record, cols[3]),
			field(record, cols[4]),
		)
		if !ok {
			dropped++
			return
		}
		records = append(records, rec)
	})
	return records, dropped, err
}

func readParcels(t *csvTable) ([]models.ParcelRecord, bool, int, error) {
	cols, err := t.require(colParcelNumber, colOwnerName, colOwnerCityState, colLotSquareFeet)
	if err != nil {
		return nil, false, 0, err
	}
	assessmentCol := t.optional(colAssessment)

	parcels := []models.ParcelRecord{}
	dropped := 0
	err = t.each(func(record []string) {
		p, ok := models.ParseParcel(
			field(record, cols[0]),
			field(record, cols[1]),
			field(record, cols[2]),
			field(record, cols[3]),
			field(record, assessmentCol),
		)
		if !ok {
			dropped++
			return
		}
		parcels = append(parcels, p)
	})
	return parcels, assessmentCol >= 0, dropped, err
}
