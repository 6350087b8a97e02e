package apptcache

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groomdesk/internal/domain/appointment"
)

func appt(id, date, start, staffID string) appointment.Appointment {
	return appointment.Appointment{ID: id, Date: date, StartTime: start, EndTime: "23:00", StaffID: staffID, Status: appointment.StatusReserved}
}

func ids(list []appointment.Appointment) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	sort.Strings(out)
	return out
}

func TestQueryByDate_EmptyCache(t *testing.T) {
	c := New()
	got := c.QueryByDate("2024-03-01", "")
	assert.Empty(t, got)
	assert.Equal(t, 0, c.Len())
}

func TestMergeRange_MonthReplacesOnlyThatMonth(t *testing.T) {
	c := New()
	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("feb-1", "2024-02-28", "10:00", "s1"),
		appt("mar-1", "2024-03-01", "10:00", "s1"),
		appt("mar-2", "2024-03-01", "11:00", "s2"),
	}, "2024-02"))
	// Only the February record belongs to the merged range.
	assert.Equal(t, []string{"feb-1"}, ids(c.QueryByDate("2024-02-28", "")))
	assert.Empty(t, c.QueryByDate("2024-03-01", ""))

	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("mar-1", "2024-03-01", "10:00", "s1"),
		appt("mar-2", "2024-03-01", "11:00", "s2"),
	}, "2024-03"))
	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("mar-3", "2024-03-15", "09:00", "s1"),
	}, "2024-03"))

	assert.Empty(t, c.QueryByDate("2024-03-01", ""), "stale March records must be replaced")
	assert.Equal(t, []string{"mar-3"}, ids(c.QueryByDate("2024-03-15", "")))
	assert.Equal(t, []string{"feb-1"}, ids(c.QueryByDate("2024-02-28", "")), "other months untouched")
}

func TestMergeRange_DayWithinCachedMonth(t *testing.T) {
	c := New()
	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("a", "2024-03-01", "10:00", "s1"),
		appt("b", "2024-03-02", "10:00", "s1"),
	}, "2024-03"))
	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("c", "2024-03-01", "14:00", "s2"),
	}, "2024-03-01"))

	assert.Equal(t, []string{"c"}, ids(c.QueryByDate("2024-03-01", "")))
	assert.Equal(t, []string{"b"}, ids(c.QueryByDate("2024-03-02", "")))
}

func TestMergeRange_NoDuplicatesOnRepeatedMerge(t *testing.T) {
	c := New()
	records := []appointment.Appointment{appt("a", "2024-03-01", "10:00", "s1")}
	for i := 0; i < 3; i++ {
		require.NoError(t, c.MergeRange(records, "2024-03-01"))
	}
	assert.Equal(t, 1, c.Len())
}

func TestMergeRange_EmptySetClearsRange(t *testing.T) {
	c := New()
	require.NoError(t, c.MergeRange([]appointment.Appointment{appt("a", "2024-03-01", "10:00", "s1")}, "2024-03-01"))
	require.NoError(t, c.MergeRange(nil, "2024-03-01"))
	assert.Empty(t, c.QueryByDate("2024-03-01", ""))
}

func TestMergeRange_RejectsBadPrefix(t *testing.T) {
	c := New()
	assert.Error(t, c.MergeRange(nil, "2024"))
	assert.Error(t, c.MergeRange(nil, ""))
}

func TestQueryByDate_StaffFilter(t *testing.T) {
	c := New()
	require.NoError(t, c.MergeRange([]appointment.Appointment{
		appt("a", "2024-03-01", "10:00", "s1"),
		appt("b", "2024-03-01", "10:00", "s2"),
	}, "2024-03"))

	assert.Equal(t, []string{"a"}, ids(c.QueryByDate("2024-03-01", "s1")))
	assert.Equal(t, []string{"a", "b"}, ids(c.QueryByDate("2024-03-01", AllStaff)))
	assert.Empty(t, c.QueryByDate("2024-03-01", "s9"))
}

func TestQueryByDate_ReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.MergeRange([]appointment.Appointment{appt("a", "2024-03-01", "10:00", "s1")}, "2024-03"))
	got := c.QueryByDate("2024-03-01", "")
	got[0].ID = "mutated"
	found, ok := c.FindByID("a")
	require.True(t, ok)
	assert.Equal(t, "a", found.ID)
}
