package weather

import (
	"strings"
	"time"

	"github.com/swelljoe/mitiempo/internal/aemet"
)

// Project builds the view-model from the first day of item.
func Project(item aemet.ForecastItem) (WeatherViewModel, error) {
	if len(item.Days) == 0 {
		return WeatherViewModel{}, &Error{Kind: KindEmptyForecast, Phase: PhaseFetch}
	}
	return ProjectDay(item, item.Days[0])
}

// ProjectDay builds the view-model for a specific day of item.
func ProjectDay(item aemet.ForecastItem, day aemet.DayForecast) (WeatherViewModel, error) {
	date, clock, err := splitElaborated(item.ElaboratedAt)
	if err != nil {
		return WeatherViewModel{}, err
	}

	return WeatherViewModel{
		LocationName: item.Name,
		Province:     item.Province,
		MaxTemp:      day.MaxTemperature,
		MinTemp:      day.MinTemperature,
		UpdatedTime:  clock,
		UpdatedDate:  date,
		ForecastDate: day.DateOnly(),
		Sky:          day.SkyDescription(),
		UVMax:        day.UVMax,
	}, nil
}

// splitElaborated turns "2024-03-15T09:00:00" into ("15/03/2024", "09:00:00").
func splitElaborated(ts string) (string, string, error) {
	date, clock, ok := strings.Cut(ts, "T")
	if !ok {
		return "", "", &Error{Kind: KindMalformedTimestamp, Value: ts}
	}
	ymd := strings.Split(date, "-")
	if len(ymd) != 3 {
		return "", "", &Error{Kind: KindMalformedTimestamp, Value: ts}
	}
	return ymd[2] + "/" + ymd[1] + "/" + ymd[0], clock, nil
}

// SelectDay returns the entry of days whose date matches on.
func SelectDay(days []aemet.DayForecast, on time.Time) (aemet.DayForecast, bool) {
	want := on.Format("2006-01-02")
	for _, d := range days {
		if d.DateOnly() == want {
			return d, true
		}
	}
	return aemet.DayForecast{}, false
}
