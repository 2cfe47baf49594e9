package aemet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResolveResponse is the first-hop response. Status is the payload's own
// status field; 200 is the only success value.
type ResolveResponse struct {
	Status      int    `json:"estado"`
	Description string `json:"descripcion"`
	DataURL     string `json:"datos"`
}

// ForecastEnvelope is the second-hop response, one item per requested municipality.
type ForecastEnvelope []ForecastItem

// ForecastItem is a municipality's daily forecast
type ForecastItem struct {
	ElaboratedAt string        `json:"elaborado"` // "YYYY-MM-DDTHH:mm:ss"
	Name         string        `json:"nombre"`
	Province     string        `json:"provincia"`
	Days         []DayForecast `json:"dia"`
}

type DayForecast struct {
	Date           string     `json:"fecha"`
	MaxTemperature int        `json:"maxima"`
	MinTemperature int        `json:"minima"`
	UVMax          *int       `json:"uv_max,omitempty"`
	Sky            []SkyState `json:"estado_cielo,omitempty"`
}

// DateOnly returns the date part of Date ("2024-03-15T00:00:00" -> "2024-03-15").
func (d DayForecast) DateOnly() string {
	date, _, _ := strings.Cut(d.Date, "T")
	return date
}

// SkyDescription returns the whole-day sky description, falling back to
// the first period AEMET reports.
func (d DayForecast) SkyDescription() string {
	for _, s := range d.Sky {
		if s.Period == "" || s.Period == "00-24" {
			return s.Description
		}
	}
	if len(d.Sky) > 0 {
		return d.Sky[0].Description
	}
	return ""
}

type SkyState struct {
	Period      string `json:"periodo,omitempty"`
	Value       string `json:"value"`
	Description string `json:"descripcion"`
}

// FlexInt decodes integers that AEMET sends either as JSON numbers or as
// numeric strings. Empty strings and null leave the value untouched.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		*i = FlexInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %q", s)
	}
	r := math.Round(f)
	if r < float64(math.MinInt) || r >= -float64(math.MinInt) {
		return fmt.Errorf("not a number: %q out of range", s)
	}
	*i = FlexInt(r)
	return nil
}

// wire types keep required fields as pointers so absence can be told
// apart from zero.

type resolveWire struct {
	Status      *FlexInt `json:"estado"`
	Description string   `json:"descripcion"`
	DataURL     string   `json:"datos"`
}

type itemWire struct {
	ElaboratedAt *string `json:"elaborado"`
	Name         *string `json:"nombre"`
	Province     string  `json:"provincia"`
	Prediction   *struct {
		Days []dayWire `json:"dia"`
	} `json:"prediccion"`
}

type dayWire struct {
	Date        string `json:"fecha"`
	Temperature *struct {
		Max *FlexInt `json:"maxima"`
		Min *FlexInt `json:"minima"`
	} `json:"temperatura"`
	UVMax *FlexInt `json:"uvMax"`
	Sky   []struct {
		Value       string `json:"value"`
		Period      string `json:"periodo"`
		Description string `json:"descripcion"`
	} `json:"estadoCielo"`
}

func decodeResolve(body []byte) (*ResolveResponse, error) {
	var w resolveWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &DecodeError{Body: body, Err: err}
	}
	if w.Status == nil {
		return nil, &DecodeError{Body: body, Err: errMissing("estado")}
	}
	return &ResolveResponse{
		Status:      int(*w.Status),
		Description: w.Description,
		DataURL:     w.DataURL,
	}, nil
}

func decodeForecast(body []byte) (ForecastEnvelope, error) {
	var items []itemWire
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &DecodeError{Body: body, Err: err}
	}

	env := make(ForecastEnvelope, 0, len(items))
	for i, w := range items {
		item, err := w.toItem()
		if err != nil {
			return nil, &DecodeError{Body: body, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		env = append(env, item)
	}
	return env, nil
}

func (w itemWire) toItem() (ForecastItem, error) {
	switch {
	case w.ElaboratedAt == nil:
		return ForecastItem{}, errMissing("elaborado")
	case w.Name == nil:
		return ForecastItem{}, errMissing("nombre")
	case w.Prediction == nil || w.Prediction.Days == nil:
		return ForecastItem{}, errMissing("prediccion.dia")
	}

	item := ForecastItem{
		ElaboratedAt: *w.ElaboratedAt,
		Name:         *w.Name,
		Province:     w.Province,
		Days:         make([]DayForecast, 0, len(w.Prediction.Days)),
	}
	for j, d := range w.Prediction.Days {
		if d.Temperature == nil || d.Temperature.Max == nil || d.Temperature.Min == nil {
			return ForecastItem{}, errMissing(fmt.Sprintf("prediccion.dia[%d].temperatura", j))
		}
		day := DayForecast{
			Date:           d.Date,
			MaxTemperature: int(*d.Temperature.Max),
			MinTemperature: int(*d.Temperature.Min),
		}
		if d.UVMax != nil {
			uv := int(*d.UVMax)
			day.UVMax = &uv
		}
		for _, s := range d.Sky {
			// AEMET pads the list with empty periods
			if s.Value == "" && s.Description == "" {
				continue
			}
			day.Sky = append(day.Sky, SkyState{Period: s.Period, Value: s.Value, Description: s.Description})
		}
		item.Days = append(item.Days, day)
	}
	return item, nil
}

func errMissing(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
