package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_PhoneNeedsNineDigits(t *testing.T) {
	q, err := BuildQuery(ListFilter{Phone: "052-12"}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, q.Phone)

	q, err = BuildQuery(ListFilter{Phone: "052-123-4567"}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, q.Phone)
	assert.Equal(t, "0521234567", *q.Phone)
}

func TestBuildQuery_Status(t *testing.T) {
	q, err := BuildQuery(ListFilter{Status: "open"}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, q.Redeemed)
	assert.False(t, *q.Redeemed)

	q, err = BuildQuery(ListFilter{Status: "redeemed"}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, q.Redeemed)
	assert.True(t, *q.Redeemed)

	q, err = BuildQuery(ListFilter{Status: "all"}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, q.Redeemed)

	_, err = BuildQuery(ListFilter{Status: "closed"}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuildQuery_DateToCoversWholeDay(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)
	q, err := BuildQuery(ListFilter{DateFrom: "2026-05-01", DateTo: "2026-05-03"}, loc)
	require.NoError(t, err)
	require.NotNil(t, q.CreatedFrom)
	require.NotNil(t, q.CreatedTo)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, loc), *q.CreatedFrom)

	lastInstant := &Compensation{CreatedAt: time.Date(2026, 5, 3, 23, 59, 59, int(999*time.Millisecond), loc)}
	nextDay := &Compensation{CreatedAt: time.Date(2026, 5, 4, 0, 0, 0, 0, loc)}
	firstInstant := &Compensation{CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, loc)}
	dayBefore := &Compensation{CreatedAt: time.Date(2026, 4, 30, 23, 59, 59, 0, loc)}

	assert.True(t, q.Matches(lastInstant))
	assert.False(t, q.Matches(nextDay))
	assert.True(t, q.Matches(firstInstant))
	assert.False(t, q.Matches(dayBefore))
}

func TestBuildQuery_InvalidDate(t *testing.T) {
	_, err := BuildQuery(ListFilter{DateFrom: "05/01/2026"}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = BuildQuery(ListFilter{DateTo: "2026-13-01"}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestQuery_MatchesNameCaseInsensitive(t *testing.T) {
	q, err := BuildQuery(ListFilter{Name: "  dan "}, time.UTC)
	require.NoError(t, err)
	assert.True(t, q.Matches(&Compensation{Name: "Dana Levi"}))
	assert.True(t, q.Matches(&Compensation{Name: "JORDAN"}))
	assert.False(t, q.Matches(&Compensation{Name: "Ran"}))
}

func TestQuery_OpenNeverMatchesRedeemed(t *testing.T) {
	q, err := BuildQuery(ListFilter{Status: StatusOpen, Name: "a"}, time.UTC)
	require.NoError(t, err)
	rec := &Compensation{Name: "Dana"}
	rec.MarkRedeemed("Ran", time.Now())
	assert.False(t, q.Matches(rec))
}

func TestQuery_WithPage(t *testing.T) {
	q := Query{}.WithPage(3, 50)
	assert.Equal(t, 100, q.Offset)
	assert.Equal(t, 50, q.Limit)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, TotalPages(120, 50))
	assert.Equal(t, 2, TotalPages(100, 50))
	assert.Equal(t, 1, TotalPages(0, 50))
	assert.Equal(t, 1, TotalPages(1, 50))
}

func TestCheckPage(t *testing.T) {
	assert.ErrorIs(t, CheckPage(0, 3), ErrPageOutOfRange)
	assert.ErrorIs(t, CheckPage(4, 3), ErrPageOutOfRange)
	assert.NoError(t, CheckPage(1, 3))
	assert.NoError(t, CheckPage(3, 3))
	assert.NoError(t, CheckPage(1, TotalPages(0, 50)))
}

func TestPager_BoundariesAreNoOps(t *testing.T) {
	p := Pager{Page: 1, PageSize: 50, Total: 120}
	assert.False(t, p.HasPrev())
	assert.Equal(t, 1, p.Prev().Page)
	assert.Equal(t, 2, p.Next().Page)

	last := Pager{Page: 3, PageSize: 50, Total: 120}
	assert.False(t, last.HasNext())
	assert.Equal(t, 3, last.Next().Page)
	assert.Equal(t, 2, last.Prev().Page)
}
