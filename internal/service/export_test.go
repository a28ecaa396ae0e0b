package service

import (
	"bytes"
	"testing"
	"time"

	"compsystem/internal/infrastructure/sheet"
	"compsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildExportRows(t *testing.T) {
	created := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	redeemedAt := time.Date(2026, 1, 16, 18, 30, 0, 0, time.UTC)
	reason, by, redeemer := "late order", "Avi", "Ran"

	rows := BuildExportRows([]*model.Compensation{
		{Phone: "0521234567", Name: "Dana", CouponType: "Dessert of choice", Reason: &reason, CreatedBy: &by, CreatedAt: created},
		{Phone: "0537654321", Name: "Ran", CouponType: "Credit amount: ₪30", CreatedAt: created, Redeemed: true, RedeemedAt: &redeemedAt, RedeemedBy: &redeemer},
	}, testLoc)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0521234567", "Dana", "Dessert of choice", "late order", "Avi", "2026-01-15 10:00:00", "Open", "", ""}, rows[0])
	assert.Equal(t, "Redeemed", rows[1][6])
	assert.Equal(t, "2026-01-16 20:30:00", rows[1][7])
	assert.Equal(t, "Ran", rows[1][8])
	assert.Len(t, rows[0], len(sheet.ExportHeader))
}

func TestExport_WritesCurrentPage(t *testing.T) {
	svc, _ := newTestService(t, model.CompensationPolicy{})
	createDana(t, svc)

	data, err := svc.Export(authedCtx(), model.ListFilter{}, 1)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0521234567", rows[1][0])

	_, err = svc.Export(authedCtx(), model.ListFilter{}, 2)
	require.ErrorIs(t, err, model.ErrPageOutOfRange)
}
