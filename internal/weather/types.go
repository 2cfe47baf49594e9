package weather

// WeatherViewModel is what the presentation layer renders for one municipality.
type WeatherViewModel struct {
	LocationName string `json:"location_name"`
	Province     string `json:"province,omitempty"`
	MaxTemp      int    `json:"max_temp"`
	MinTemp      int    `json:"min_temp"`
	UpdatedTime  string `json:"updated_time"` // "HH:mm:ss"
	UpdatedDate  string `json:"updated_date"` // "DD/MM/YYYY"
	ForecastDate string `json:"forecast_date,omitempty"`
	Sky          string `json:"sky,omitempty"`
	UVMax        *int   `json:"uv_max,omitempty"`
}
