package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStore(t *testing.T) {
	s, err := ParseStore("appstore")
	require.NoError(t, err)
	assert.Equal(t, AppStore, s)

	s, err = ParseStore("playstore")
	require.NoError(t, err)
	assert.Equal(t, PlayStore, s)

	_, err = ParseStore("amazon")
	assert.Error(t, err)

	_, err = ParseStore("")
	assert.Error(t, err)
}

func TestNewDateRange(t *testing.T) {
	t.Run("both empty yields nil range", func(t *testing.T) {
		r, err := NewDateRange("", "")
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("bare end date covers the whole day", func(t *testing.T) {
		r, err := NewDateRange("2025-01-01", "2025-01-31")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.True(t, r.Contains(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)))
		assert.False(t, r.Contains(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("start after end rejected", func(t *testing.T) {
		_, err := NewDateRange("2025-02-01", "2025-01-01")
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := NewDateRange("last week", "")
		assert.Error(t, err)

		_, err = NewDateRange("", "tomorrow")
		assert.Error(t, err)
	})

	t.Run("open ended toward the present", func(t *testing.T) {
		r, err := NewDateRange("2025-01-01", "")
		require.NoError(t, err)
		assert.True(t, r.Contains(time.Now().Add(time.Hour)))
		assert.False(t, r.Contains(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	})
}

func TestDateRangeNilIsUnbounded(t *testing.T) {
	var r *DateRange
	assert.True(t, r.Contains(time.Now()))
	assert.False(t, r.Before(time.Time{}))
}

func TestDateRangeBefore(t *testing.T) {
	r, err := NewDateRange("2025-06-01", "2025-06-30")
	require.NoError(t, err)

	assert.True(t, r.Before(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Before(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Before(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "US"},
		{in: "us", want: "US"},
		{in: "De", want: "DE"},
		{in: "GB", want: "GB"},
		{in: "XX", wantErr: true},
		{in: "USA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("in="+tt.in, func(t *testing.T) {
			got, err := NormalizeCountry(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountryListSortedByCode(t *testing.T) {
	list := CountryList()
	require.Len(t, list, len(SupportedCountries))

	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}
	assert.Equal(t, "AE", list[0].Code)
}
