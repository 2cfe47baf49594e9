package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/swelljoe/mitiempo/internal/db"
	"github.com/swelljoe/mitiempo/internal/weather"
)

// Database defines the interface for database operations needed by handlers
type Database interface {
	SearchMunicipalities(query string, limit int) ([]db.Municipality, error)
	GetMunicipality(code string) (*db.Municipality, error)
	Ping() error
}

// WeatherService is the orchestration the handlers expose. *weather.Service implements it.
type WeatherService interface {
	FetchTodayWeather(ctx context.Context, municipalityCode, apiKey string) (*weather.WeatherViewModel, error)
	FetchWeatherForDate(ctx context.Context, municipalityCode, apiKey string, on time.Time) (*weather.WeatherViewModel, error)
}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	db      Database
	weather WeatherService
	apiKey  string
	limiter *rate.Limiter
}

// New creates a new Handlers instance. database and limiter may be nil.
func New(database Database, wService WeatherService, apiKey string, limiter *rate.Limiter) *Handlers {
	return &Handlers{
		db:      database,
		weather: wService,
		apiKey:  apiKey,
		limiter: limiter,
	}
}

// HandleHealth handles health check endpoint
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "degraded"
		}
	} else {
		status = "no_database"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// HandleSearch performs municipality autocomplete
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < 2 || h.db == nil {
		writeJSON(w, http.StatusOK, []db.Municipality{})
		return
	}

	ms, err := h.db.SearchMunicipalities(q, 10)
	if err != nil {
		log.Printf("[%s] search error: %v", RequestIDFrom(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if ms == nil {
		ms = []db.Municipality{}
	}

	writeJSON(w, http.StatusOK, ms)
}

// HandleWeatherAPI returns today's forecast for ?municipio=CODE or ?q=NAME.
// An optional ?fecha=YYYY-MM-DD selects the day by date.
func (h *Handlers) HandleWeatherAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := RequestIDFrom(ctx)

	code := strings.TrimSpace(r.URL.Query().Get("municipio"))
	name := strings.TrimSpace(r.URL.Query().Get("q"))
	fecha := strings.TrimSpace(r.URL.Query().Get("fecha"))

	var on time.Time
	if fecha != "" {
		t, err := time.Parse("2006-01-02", fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Fecha no válida, use AAAA-MM-DD.")
			return
		}
		on = t
	}

	if code == "" && name != "" {
		if h.db == nil {
			writeError(w, http.StatusServiceUnavailable, "Búsqueda de municipios no disponible.")
			return
		}
		ms, err := h.db.SearchMunicipalities(name, 1)
		if err != nil {
			log.Printf("[%s] search error: %v", reqID, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if len(ms) == 0 {
			writeError(w, http.StatusNotFound, "Municipio no encontrado: "+name)
			return
		}
		code = ms[0].Code
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "Indique un municipio.")
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			log.Printf("[%s] rate limit wait canceled: %v", reqID, err)
			writeError(w, http.StatusServiceUnavailable, "Demasiadas peticiones, inténtelo más tarde.")
			return
		}
	}

	var (
		vm  *weather.WeatherViewModel
		err error
	)
	if on.IsZero() {
		vm, err = h.weather.FetchTodayWeather(ctx, code, h.apiKey)
	} else {
		vm, err = h.weather.FetchWeatherForDate(ctx, code, h.apiKey, on)
	}
	if err != nil {
		log.Printf("[%s] weather error for %s: %v", reqID, code, err)
		writeError(w, statusFor(err), weather.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, vm)
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch weather.KindOf(err) {
	case weather.KindInvalidMunicipality:
		return http.StatusBadRequest
	case weather.KindResolveRejected, weather.KindEmptyForecast, weather.KindDayNotFound:
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("JSON encode error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Printf("Response write error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
