package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/housing/internal/database"
	"github.com/stwalsh4118/housing/internal/models"
)

// Table names of the imported source tables.
const (
	SalesTable       = "real_estate_sales"
	AssessmentsTable = "real_estate_assessments"
	ParcelsTable     = "parcel_details"
)

// ParcelRows is the result of reading the parcel table.
type ParcelRows struct {
	Parcels []models.ParcelRecord
	// AssessmentTracked is false when the table has no assessment column.
	AssessmentTracked bool
}

// RecordRepository reads the three housing tables from PostgreSQL.
// Values are read as text and converted with the same rules as the CSV
// source. Each method returns every row it could convert and the number of
// rows it dropped because a required value was missing or not a finite number.
type RecordRepository interface {
	// ListSales returns the sales rows with date and amount as text so the
	// sales normalizer sees exactly what a CSV import would give it.
	ListSales(ctx context.Context) ([]models.RawSale, error)

	// ListAssessments returns assessments with a tax year and total value.
	ListAssessments(ctx context.Context) ([]models.AssessmentRecord, int, error)

	// ListParcels returns parcel ownership rows.
	ListParcels(ctx context.Context) (*ParcelRows, int, error)
}

// recordRepository is the pgx implementation of RecordRepository.
type recordRepository struct {
	db *database.Database
}

// NewRecordRepository creates a new instance of RecordRepository.
func NewRecordRepository(db *database.Database) RecordRepository {
	return &recordRepository{
		db: db,
	}
}

// saleDateFormat renders a date or timestamp column in the sales export's
// text layout.
const saleDateFormat = `'YYYY/MM/DD HH24:MI:SS"+00"'`

// saleDateExpr returns the select expression for the sale_date column given
// its information_schema data type. Text columns pass through unchanged so
// the normalizer sees the imported value.
func saleDateExpr(dataType string) string {
	switch dataType {
	case "text", "character varying", "character":
		return "COALESCE(sale_date::text, '')"
	case "timestamp with time zone":
		return "COALESCE(to_char(sale_date AT TIME ZONE 'UTC', " + saleDateFormat + "), '')"
	default:
		return "COALESCE(to_char(sale_date, " + saleDateFormat + "), '')"
	}
}

func (r *recordRepository) ListSales(ctx context.Context) ([]models.RawSale, error) {
	dateType, err := r.columnType(ctx, SalesTable, "sale_date")
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			COALESCE(parcel_number::text, ''),
			` + saleDateExpr(dateType) + `,
			COALESCE(sale_amount::text, '')
		FROM ` + SalesTable + `
		ORDER BY ctid
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := []models.RawSale{}
	for rows.Next() {
		var s models.RawSale
		if err := rows.Scan(&s.ParcelNumber, &s.SaleDate, &s.SaleAmount); err != nil {
			return nil, fmt.Errorf("failed to scan sale row: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale rows: %w", err)
	}

	return sales, nil
}

func (r *recordRepository) ListAssessments(ctx context.Context) ([]models.AssessmentRecord, int, error) {
	query := `
		SELECT
			COALESCE(parcel_number::text, ''),
			COALESCE(tax_year::text, ''),
			COALESCE(total_value::text, ''),
			COALESCE(street_number::text, ''),
			COALESCE(street_name::text, '')
		FROM ` + AssessmentsTable + `
		ORDER BY ctid
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	records := []models.AssessmentRecord{}
	dropped := 0
	for rows.Next() {
		var parcel, taxYear, totalValue, streetNumber, streetName string
		if err := rows.Scan(&parcel, &taxYear, &totalValue, &streetNumber, &streetName); err != nil {
			return nil, 0, fmt.Errorf("failed to scan assessment row: %w", err)
		}
		rec, ok := models.ParseAssessment(parcel, taxYear, totalValue, streetNumber, streetName)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating assessment rows: %w", err)
	}

	return records, dropped, nil
}

func (r *recordRepository) ListParcels(ctx context.Context) (*ParcelRows, int, error) {
	tracked, err := r.hasColumn(ctx, ParcelsTable, "assessment")
	if err != nil {
		return nil, 0, err
	}

	assessmentExpr := "''"
	if tracked {
		assessmentExpr = "COALESCE(assessment::text, '')"
	}

	query := `
		SELECT
			COALESCE(parcel_number::text, ''),
			COALESCE(owner_name::text, ''),
			COALESCE(owner_city_state::text, ''),
			COALESCE(lot_square_feet::text, ''),
			` + assessmentExpr + `
		FROM ` + ParcelsTable + `
		ORDER BY ctid
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query parcels: %w", err)
	}
	defer rows.Close()

	result := &ParcelRows{
		Parcels:           []models.ParcelRecord{},
		AssessmentTracked: tracked,
	}
	dropped := 0
	for rows.Next() {
		var parcel, owner, cityState, lotSquareFeet, assessment string
		if err := rows.Scan(&parcel, &owner, &cityState, &lotSquareFeet, &assessment); err != nil {
			return nil, 0, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		p, ok := models.ParseParcel(parcel, owner, cityState, lotSquareFeet, assessment)
		if !ok {
			dropped++
			continue
		}
		result.Parcels = append(result.Parcels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating parcel rows: %w", err)
	}

	return result, dropped, nil
}

// hasColumn reports whether table has the named column in the current schema.
func (r *recordRepository) hasColumn(ctx context.Context, table, column string) (bool, error) {
	dataType, err := r.columnType(ctx, table, column)
	if err != nil {
		return false, err
	}
	return dataType != "", nil
}

// columnType returns the information_schema data type of a column, or "" when
// the table has no such column.
func (r *recordRepository) columnType(ctx context.Context, table, column string) (string, error) {
	query := `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
			AND table_name = $1
			AND column_name = $2
	`

	var dataType string
	err := r.db.Pool.QueryRow(ctx, query, table, column).Scan(&dataType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	return dataType, nil
}
