package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var truckRowColumns = []string{
	"id", "name", "manufacturer", "model", "year", "kilometers", "horsepower", "price", "image_url",
	"subtitle", "certified", "state", "location", "city", "created_at", "updated_at",
}

func TestTruckRepository_GetByID(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewTruckRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("FROM trucks WHERE id = $1")

	mock.ExpectQuery(query).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(truckRowColumns).
			AddRow(7, "Tata Signa 4825.TK", "Tata", "Signa", 2021, 120000, 250, 3450000.0, "https://cdn.example/7.jpg",
				nil, true, "Maharashtra", nil, "Pune", now, now))

	truck, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Tata Signa 4825.TK", truck.Name)
	assert.True(t, truck.Certified)
	require.NotNil(t, truck.City)
	assert.Equal(t, "Pune", *truck.City)
	assert.Nil(t, truck.Subtitle)

	mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnRows(sqlmock.NewRows(truckRowColumns))
	_, err = repo.GetByID(ctx, 8)
	assert.ErrorIs(t, err, ErrTruckNotFound)

	mock.ExpectQuery(query).WithArgs(int64(9)).WillReturnError(sql.ErrConnDone)
	_, err = repo.GetByID(ctx, 9)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruckRepository_GetInspectionReport(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewTruckRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("FROM truck_inspection_reports")
	columns := []string{"truck_id", "summary", "overall_score", "sections", "inspected_at"}

	mock.ExpectQuery(query).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "Good condition", 86, []byte(`[{"name":"engine","score":9}]`), now))

	report, err := repo.GetInspectionReport(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 86, report.OverallScore)
	assert.JSONEq(t, `[{"name":"engine","score":9}]`, report.Sections.String())

	mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnRows(sqlmock.NewRows(columns))
	_, err = repo.GetInspectionReport(ctx, 8)
	assert.ErrorIs(t, err, ErrReportNotFound)

	mock.ExpectQuery(query).WithArgs(int64(9)).WillReturnError(errors.New("connection refused"))
	_, err = repo.GetInspectionReport(ctx, 9)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
