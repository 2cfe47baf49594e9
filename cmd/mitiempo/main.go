package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/swelljoe/mitiempo/internal/aemet"
	"github.com/swelljoe/mitiempo/internal/config"
	"github.com/swelljoe/mitiempo/internal/db"
	"github.com/swelljoe/mitiempo/internal/handlers"
	"github.com/swelljoe/mitiempo/internal/weather"
)

func main() {
	config.LoadDotEnv()

	municipio := flag.String("municipio", "", "Fetch the forecast for this municipality code once and exit")
	fecha := flag.String("fecha", "", "With -municipio, pick the day by date (YYYY-MM-DD) instead of the first one")
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := aemet.NewClient(cfg.AEMET.BaseURL, cfg.AEMET.Timeout)
	svc := weather.NewService(client)

	if *municipio != "" {
		if err := runOnce(ctx, os.Stdout, svc, cfg.AEMET.APIKey, *municipio, *fecha); err != nil {
			log.Printf("Excepción en la consulta: %v", err)
			fmt.Fprintln(os.Stderr, weather.UserMessage(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, svc); err != nil {
		log.Fatal(err)
	}
}

type forecaster interface {
	FetchTodayWeather(ctx context.Context, municipalityCode, apiKey string) (*weather.WeatherViewModel, error)
	FetchWeatherForDate(ctx context.Context, municipalityCode, apiKey string, on time.Time) (*weather.WeatherViewModel, error)
}

func runOnce(ctx context.Context, w io.Writer, svc forecaster, apiKey, code, fecha string) error {
	var (
		vm  *weather.WeatherViewModel
		err error
	)
	if fecha == "" {
		vm, err = svc.FetchTodayWeather(ctx, code, apiKey)
	} else {
		on, perr := time.Parse("2006-01-02", fecha)
		if perr != nil {
			return fmt.Errorf("invalid -fecha %q: %w", fecha, perr)
		}
		vm, err = svc.FetchWeatherForDate(ctx, code, apiKey, on)
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, formatDisplay(vm))
	return err
}

// formatDisplay renders the view-model the way the mobile app lays it out.
func formatDisplay(vm *weather.WeatherViewModel) string {
	return fmt.Sprintf("Temperatura en %s\nMáx: %d°C\nMín: %d°C\nActualizado a las: %s %s\n",
		vm.LocationName, vm.MaxTemp, vm.MinTemp, vm.UpdatedTime, vm.UpdatedDate)
}

func serve(ctx context.Context, cfg *config.Config, svc *weather.Service) error {
	// Initialize database connection
	var store handlers.Database
	database, err := db.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Printf("Warning: Database connection failed: %v", err)
		log.Println("Continuing without municipality search...")
	} else {
		defer database.Close()
		store = database
		log.Println("Database connected successfully")
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.AEMET.RPS), cfg.AEMET.Burst)
	h := handlers.New(store, svc, cfg.AEMET.APIKey, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
