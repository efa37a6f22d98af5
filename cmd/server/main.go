package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/adapters/geocode"
	"route-optimizer-service/internal/api"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/ports"
	"route-optimizer-service/internal/services"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires concrete adapters (OSRM, Nominatim, cache backend) behind
// ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")

	geocodeCache, cleanup, err := buildGeocodeCache()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	geocoder := geocode.NewNominatimGeocoder(
		os.Getenv("NOMINATIM_BASE_URL"),
		os.Getenv("CITY_SUFFIX"),
		geocodeCache,
	)

	source := distance.NewOSRMTableSource(os.Getenv("OSRM_BASE_URL"))

	optimizer := &services.Optimizer{
		Geocoder:         geocoder,
		Source:           source,
		UseLiveDistances: config.Get("USE_LIVE_DISTANCES", "true") == "true",
		SolveTimeLimit:   solveTimeLimit(),
	}

	router := api.NewRouter(optimizer)

	// Timeouts are tuned for slow optimization runs: the NDJSON stream
	// stays open through geocoding and solving.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// buildGeocodeCache picks the cache backend from CACHE_BACKEND
// (sqlite | postgres | redis); sqlite is the zero-setup default.
func buildGeocodeCache() (ports.GeocodeCache, func(), error) {
	switch backend := config.Get("CACHE_BACKEND", "sqlite"); backend {
	case "sqlite":
		conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return cache.NewSqliteGeocodeCache(conn), func() { conn.Close() }, nil

	case "postgres":
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			return nil, nil, fmt.Errorf("CACHE_BACKEND=postgres requires DATABASE_URL")
		}
		conn, err := db.Open(databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewSQLGeocodeCache(conn), func() { conn.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: config.Get("REDIS_ADDR", "localhost:6379"),
		})
		return cache.NewRedisGeocodeCache(client), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown CACHE_BACKEND %q", backend)
	}
}

func solveTimeLimit() time.Duration {
	raw := config.Get("SOLVER_TIME_LIMIT_SECONDS", "30")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		log.Printf("invalid SOLVER_TIME_LIMIT_SECONDS=%q, using 30", raw)
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
