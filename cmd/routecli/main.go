package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/adapters/geocode"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ingest"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/services"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// routecli runs the optimization pipeline from the terminal, without the
// HTTP server. Useful for one-off runs over a local CSV.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	root := &cobra.Command{
		Use:   "routecli",
		Short: "Plan visiting routes for a store list",
	}
	root.AddCommand(newOptimizeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newOptimizeCmd() *cobra.Command {
	var (
		filePath          string
		outPath           string
		addressColumn     string
		journeyMode       string
		startAddress      string
		storesPerDay      int
		prioritizeRevenue bool
		biasStrength      float64
		useLive           bool
		timeLimitSeconds  int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the visiting order for a store CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read %s: %w", filePath, err)
			}

			header, rows, err := ingest.ParseCSV(raw)
			if err != nil {
				return err
			}
			stores, err := ingest.BuildStores(header, rows, addressColumn)
			if err != nil {
				return err
			}

			if prioritizeRevenue {
				hasRevenue := false
				for _, s := range stores {
					if s.Revenue != nil {
						hasRevenue = true
						break
					}
				}
				if !hasRevenue {
					return errors.New("--prioritize-revenue needs a revenue column (header like revenue, omsætning or sales)")
				}
			}
			if biasStrength < 0 || biasStrength > 1 {
				return errors.New("--bias-strength must be between 0 and 1")
			}

			mode, err := domain.ParseJourneyMode(journeyMode)
			if err != nil {
				return err
			}

			conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := cache.InitSchema(conn); err != nil {
				return err
			}

			optimizer := &services.Optimizer{
				Geocoder: geocode.NewNominatimGeocoder(
					os.Getenv("NOMINATIM_BASE_URL"),
					os.Getenv("CITY_SUFFIX"),
					cache.NewSqliteGeocodeCache(conn),
				),
				Source:           distance.NewOSRMTableSource(os.Getenv("OSRM_BASE_URL")),
				UseLiveDistances: useLive,
				SolveTimeLimit:   time.Duration(timeLimitSeconds) * time.Second,
			}

			req := services.OptimizeRequest{
				Stores:              stores,
				StoresPerDay:        storesPerDay,
				PrioritizeRevenue:   prioritizeRevenue,
				RevenueBiasStrength: biasStrength,
				Mode:                mode,
				StartAddress:        startAddress,
			}

			plan, err := optimizer.Optimize(cmd.Context(), req, func(stage string, current, total int, address string) {
				fmt.Fprintf(os.Stderr, "[%s] %d/%d %s\n", stage, current, total, address)
			})
			if err != nil {
				return err
			}

			rendered, err := ingest.RenderVisitCSV(plan.Stops)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			printSummary(plan)
			fmt.Printf("Route written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "input store CSV (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "route.csv", "output CSV path")
	cmd.Flags().StringVar(&addressColumn, "address-column", "", "explicit address column name")
	cmd.Flags().StringVarP(&journeyMode, "mode", "m", "continue", "journey mode: continue | same_start | round_trip")
	cmd.Flags().StringVar(&startAddress, "start", "", "start address for same_start and round_trip modes")
	cmd.Flags().IntVar(&storesPerDay, "stores-per-day", 20, "stops per working day")
	cmd.Flags().BoolVar(&prioritizeRevenue, "prioritize-revenue", false, "bias the route toward high-revenue stores")
	cmd.Flags().Float64Var(&biasStrength, "bias-strength", 0, "revenue bias strength in (0,1]; 0 uses the default")
	cmd.Flags().BoolVar(&useLive, "live", true, "use the live distance service (false: straight-line fallback)")
	cmd.Flags().IntVar(&timeLimitSeconds, "time-limit", 30, "solver time limit in seconds")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printSummary(plan *domain.RoutePlan) {
	s := plan.Summary
	fmt.Printf("Stops: %d over %d day(s)\n", s.TotalStores, s.NumDays)
	fmt.Printf("Total distance: %.1f km (avg leg %.1f m, max %.1f m)\n",
		s.TotalMeters/1000, s.AvgLegMeters, s.MaxLegMeters)
	if s.BaseCommute != nil {
		fmt.Printf("Commute: %.1f km out", s.BaseCommute.ToFirstMeters/1000)
		if s.BaseCommute.IncludeFromLast {
			fmt.Printf(", %.1f km back", s.BaseCommute.FromLastMeters/1000)
		}
		fmt.Println()
	}
	if len(s.FailedGeocoding) > 0 {
		fmt.Printf("Unresolved addresses: %d\n", len(s.FailedGeocoding))
	}
}
