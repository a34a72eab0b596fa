package upstream

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"weatherproxy/internal/models"
)

// londonForecast builds a forecast document with every field populated, the
// way the provider returns it with aqi=yes.
func londonForecast(days int) *models.Weather {
	cond := models.Condition{Text: "Partly cloudy", Icon: "//cdn.weatherapi.com/weather/64x64/day/116.png", Code: 1003}

	w := &models.Weather{
		Location: models.LocationDetails{
			Country:        "United Kingdom",
			Lat:            51.52,
			Lon:            -0.11,
			Name:           "London",
			Region:         "City of London, Greater London",
			TzID:           "Europe/London",
			LocaltimeEpoch: 1760871600,
			Localtime:      "2026-10-19 12:00",
		},
		Current: models.CurrentConditions{
			LastUpdatedEpoch: 1760871600,
			LastUpdated:      "2026-10-19 12:00",
			TempC:            14.2,
			TempF:            57.6,
			IsDay:            1,
			Condition:        cond,
			WindMph:          9.4,
			WindKph:          15.1,
			WindDegree:       230,
			WindDir:          "SW",
			PressureMb:       1012,
			PressureIn:       29.88,
			Humidity:         72,
			Cloud:            50,
			FeelslikeC:       12.9,
			FeelslikeF:       55.2,
			VisKm:            10,
			VisMiles:         6,
			UV:               2,
			GustMph:          13.1,
			GustKph:          21.1,
			AirQuality: models.AirQuality{
				CO: 230.3, NO2: 18.1, O3: 52.2, SO2: 3.4, PM25: 6.1, PM10: 9.2,
				USEPAIndex: 1, GBDefraIndex: 1,
			},
		},
	}

	for i := 0; i < days; i++ {
		date := fmt.Sprintf("2026-10-%02d", 19+i)
		epoch := int64(1760832000 + i*86400)
		w.Forecast.ForecastDay = append(w.Forecast.ForecastDay, models.ForecastDay{
			Date:      date,
			DateEpoch: epoch,
			Day: models.ForecastDayStats{
				MaxtempC: 15.8, MaxtempF: 60.4, MintempC: 9.1, MintempF: 48.4,
				AvgtempC: 12.3, AvgtempF: 54.1, MaxwindMph: 12.3, MaxwindKph: 19.8,
				AvgvisKm: 9.8, AvgvisMiles: 6, Avghumidity: 78,
				DailyChanceOfRain: 40, Condition: cond, UV: 2,
			},
			Astro: models.Astro{
				Sunrise: "07:29 AM", Sunset: "06:01 PM", Moonrise: "05:12 AM", Moonset: "05:40 PM",
				MoonPhase: "Waning Crescent", MoonIllumination: 5, IsSunUp: 1,
			},
			Hour: []models.ForecastHour{{
				TimeEpoch: epoch, Time: date + " 00:00", TempC: 10.1, TempF: 50.2,
				Condition: cond, WindMph: 6.7, WindKph: 10.8, WindDegree: 220, WindDir: "SW",
				PressureMb: 1013, PressureIn: 29.91, Humidity: 85, Cloud: 60,
				FeelslikeC: 8.9, FeelslikeF: 48, VisKm: 10, VisMiles: 6, ChanceOfRain: 20,
			}},
		})
	}
	return w
}

func londonForecastJSON(t *testing.T, days int) string {
	t.Helper()
	b, err := json.Marshal(londonForecast(days))
	require.NoError(t, err)
	return string(b)
}

// withoutField returns doc with the dotted path removed.
func withoutField(t *testing.T, doc string, path ...string) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	cur := m
	for _, p := range path[:len(path)-1] {
		next, ok := cur[p].(map[string]any)
		require.True(t, ok, "path segment %q", p)
		cur = next
	}
	delete(cur, path[len(path)-1])

	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}
