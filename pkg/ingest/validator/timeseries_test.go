package validator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayout = "2006-01-02 15:04:05"

func TestTimeFormatValidator_AllParseablePasses(t *testing.T) {
	path := writeCSV(t, "ts,value\n2024-01-01 00:00:00,1\n2024-01-01 01:00:00,2\n")

	v := NewTimeFormatValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
}

func TestTimeFormatValidator_BadTimestampFails(t *testing.T) {
	path := writeCSV(t, "ts,value\n2024-01-01 00:00:00,1\nnot-a-date,2\n")

	v := NewTimeFormatValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "1 invalid timestamp(s)")
}

func TestTimeFormatValidator_MissingColumnFails(t *testing.T) {
	path := writeCSV(t, "value\n1\n")

	v := NewTimeFormatValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
}

func TestTimeBeforeTodayValidator(t *testing.T) {
	path := writeCSV(t, "ts\n2024-01-01 00:00:00\n2099-01-01 00:00:00\n")

	v := NewTimeBeforeTodayValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "not before today")
}

func TestTimeBeforeTodayValidator_PastOnlyPasses(t *testing.T) {
	path := writeCSV(t, "ts\n2020-06-01 12:00:00\n2020-06-02 12:00:00\n")

	v := NewTimeBeforeTodayValidator("ts", testLayout)
	v.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
}

func TestTimeBeforeTodayValidator_UsesLocalMidnight(t *testing.T) {
	// Yesterday's timestamps must pass even when the wall clock's midnight
	// falls behind the UTC day boundary.
	path := writeCSV(t, "ts\n2024-02-29 10:00:00\n")

	v := NewTimeBeforeTodayValidator("ts", testLayout)
	v.now = func() time.Time {
		return time.Date(2024, 3, 1, 5, 0, 0, 0, time.FixedZone("UTC+10", 10*60*60))
	}
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
}

func TestTimeSeriesValidator_StrictlyIncreasingPasses(t *testing.T) {
	var rows string
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rows += fmt.Sprintf("%s\n", base.Add(time.Duration(i)*time.Hour).Format(testLayout))
	}
	path := writeCSV(t, "ts\n"+rows)

	v := NewTimeSeriesValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	assert.Equal(t, time.Hour.String(), res.Metadata["interval"])
}

func TestTimeSeriesValidator_OutOfOrderFails(t *testing.T) {
	path := writeCSV(t, "ts\n2024-01-01 02:00:00\n2024-01-01 01:00:00\n2024-01-01 03:00:00\n")

	v := NewTimeSeriesValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "not strictly increasing")
}

func TestTimeSeriesValidator_IrregularIntervalWarns(t *testing.T) {
	path := writeCSV(t, "ts\n2024-01-01 00:00:00\n2024-01-01 01:00:00\n2024-01-01 03:30:00\n")

	v := NewTimeSeriesValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "irregular")
}

func TestTimeSeriesValidator_SingleRowWarnsOnly(t *testing.T) {
	path := writeCSV(t, "ts\n2024-01-01 00:00:00\n")

	v := NewTimeSeriesValidator("ts", testLayout)
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
}
