package weather

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/swelljoe/mitiempo/internal/aemet"
)

// PhaseDelay is the pause AEMET requires between resolving the data URL
// and fetching it.
const PhaseDelay = 2 * time.Second

// Fetcher performs the two upstream calls. *aemet.Client implements it.
type Fetcher interface {
	ResolveDataURL(ctx context.Context, municipalityCode, apiKey string) (*aemet.ResolveResponse, error)
	FetchForecast(ctx context.Context, dataURL string) (aemet.ForecastEnvelope, error)
}

// Service runs the resolve, wait, fetch sequence. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	client Fetcher
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService creates a new weather service
func NewService(client Fetcher) *Service {
	return &Service{
		client: client,
		delay:  PhaseDelay,
		sleep:  sleepContext,
	}
}

// FetchTodayWeather returns today's forecast for a municipality. "Today"
// is the first day AEMET lists.
func (s *Service) FetchTodayWeather(ctx context.Context, municipalityCode, apiKey string) (*WeatherViewModel, error) {
	item, err := s.fetchItem(ctx, municipalityCode, apiKey)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm, err := Project(item)
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

// FetchWeatherForDate is FetchTodayWeather with the day picked by its
// date rather than its position.
func (s *Service) FetchWeatherForDate(ctx context.Context, municipalityCode, apiKey string, on time.Time) (*WeatherViewModel, error) {
	item, err := s.fetchItem(ctx, municipalityCode, apiKey)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	day, ok := SelectDay(item.Days, on)
	if !ok {
		return nil, &Error{Kind: KindDayNotFound, Value: on.Format("2006-01-02")}
	}
	vm, err := ProjectDay(item, day)
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

func (s *Service) fetchItem(ctx context.Context, municipalityCode, apiKey string) (aemet.ForecastItem, error) {
	if strings.TrimSpace(municipalityCode) == "" {
		return aemet.ForecastItem{}, &Error{Kind: KindInvalidMunicipality}
	}

	// A. Resolve the data URL
	res, err := s.client.ResolveDataURL(ctx, municipalityCode, apiKey)
	if err != nil {
		return aemet.ForecastItem{}, classify(ctx, err, PhaseResolve, KindResolveFailed)
	}
	if res.Status != 200 {
		return aemet.ForecastItem{}, &Error{
			Kind:        KindResolveRejected,
			Phase:       PhaseResolve,
			Status:      res.Status,
			Description: res.Description,
		}
	}

	// B. Wait before the second call
	if err := s.sleep(ctx, s.delay); err != nil {
		return aemet.ForecastItem{}, err
	}

	// C. Fetch the forecast document
	env, err := s.client.FetchForecast(ctx, res.DataURL)
	if err != nil {
		return aemet.ForecastItem{}, classify(ctx, err, PhaseFetch, KindFetchFailed)
	}
	if len(env) == 0 {
		return aemet.ForecastItem{}, &Error{Kind: KindEmptyForecast, Phase: PhaseFetch}
	}

	return env[0], nil
}

// classify wraps a transport error. Cancellation is returned unwrapped.
func classify(ctx context.Context, err error, phase Phase, kind Kind) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var de *aemet.DecodeError
	if errors.As(err, &de) {
		return &Error{Kind: KindDecode, Phase: phase, Err: err}
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
