package upstream

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeForecast(t *testing.T) {
	w, err := DecodeForecast(londonForecastJSON(t, 3))
	require.NoError(t, err)

	assert.Equal(t, "London", w.Location.Name)
	assert.Nil(t, w.Location.ID, "forecast location carries no id")
	assert.Nil(t, w.Location.URL)
	assert.Len(t, w.Forecast.ForecastDay, 3)
	assert.Equal(t, "2026-10-21", w.Forecast.ForecastDay[2].Date)
	assert.Equal(t, 6.1, w.Current.AirQuality.PM25)
	assert.Equal(t, 1, w.Current.AirQuality.USEPAIndex)
	assert.Equal(t, 1003, w.Current.Condition.Code)
}

func TestDecodeForecast_OptionalLocationFields(t *testing.T) {
	doc := strings.Replace(londonForecastJSON(t, 1), `"id":null`, `"id":2801268`, 1)
	doc = strings.Replace(doc, `"url":null`, `"url":"london-city-of-london"`, 1)

	w, err := DecodeForecast(doc)
	require.NoError(t, err)
	require.NotNil(t, w.Location.ID)
	assert.Equal(t, 2801268, *w.Location.ID)
	require.NotNil(t, w.Location.URL)
	assert.Equal(t, "london-city-of-london", *w.Location.URL)
}

func TestDecodeForecast_NullOptionalFields(t *testing.T) {
	doc := londonForecastJSON(t, 1)
	require.Contains(t, doc, `"id":null`)
	require.Contains(t, doc, `"url":null`)

	w, err := DecodeForecast(doc)
	require.NoError(t, err)
	assert.Nil(t, w.Location.ID)
	assert.Nil(t, w.Location.URL)
}

func TestDecodeForecast_Failures(t *testing.T) {
	valid := londonForecastJSON(t, 1)

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"location": {`},
		{"html error page", `<html><body>502 Bad Gateway</body></html>`},
		{"null", `null`},
		{"array instead of object", `[]`},
		{"missing location name", withoutField(t, valid, "location", "name")},
		{"missing air quality", withoutField(t, valid, "current", "air_quality")},
		{"missing forecast", withoutField(t, valid, "forecast")},
		{"wrong type", strings.Replace(valid, `"temp_c":14.2`, `"temp_c":"warm"`, 1)},
		{"null location name", strings.Replace(valid, `"name":"London"`, `"name":null`, 1)},
		{"null latitude", strings.Replace(valid, `"lat":51.52`, `"lat":null`, 1)},
		{"null condition", strings.Replace(valid, `"condition":{`, `"condition":null,"x":{`, 1)},
		{"fractional integer", strings.Replace(valid, `"wind_degree":230`, `"wind_degree":230.5`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w any
			assert.NotPanics(t, func() {
				var err error
				w, err = DecodeForecast(tt.raw)
				var decErr *DecodeError
				assert.ErrorAs(t, err, &decErr)
			})
			assert.Nil(t, w)
		})
	}
}

func TestDecodeLocations(t *testing.T) {
	raw, err := os.ReadFile("testdata/search_london.json")
	require.NoError(t, err)

	locs, err := DecodeLocations(string(raw))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, 2801268, locs[0].ID)
	assert.Equal(t, "Canada", locs[1].Country)
	assert.Equal(t, "london-ontario-canada", locs[1].URL)
}

func TestDecodeLocations_Empty(t *testing.T) {
	locs, err := DecodeLocations(`[]`)
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)
}

func TestDecodeLocations_WholeNumbers(t *testing.T) {
	locs, err := DecodeLocations(`[{"id":2.0,"name":"London","region":"x","country":"UK","lat":51,"lon":0,"url":"u"}]`)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 2, locs[0].ID)
}

func TestDecodeLocations_Failures(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"error": {"code": 1006, "message": "No matching location found."}}`,
		`[{"name": "London"}]`,
		`[{"id":1,"name":null,"region":"x","country":"UK","lat":1,"lon":1,"url":"u"}]`,
		`[{"id":1,"name":"London","region":"x","country":"UK","lat":null,"lon":1,"url":"u"}]`,
		`[{"id":null,"name":"London","region":"x","country":"UK","lat":1,"lon":1,"url":"u"}]`,
		`[{"id":1.9,"name":"London","region":"x","country":"UK","lat":1,"lon":1,"url":"u"}]`,
		`[null]`,
	} {
		_, err := DecodeLocations(raw)
		var decErr *DecodeError
		assert.ErrorAs(t, err, &decErr, raw)
	}
}
