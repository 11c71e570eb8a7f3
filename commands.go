package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"places-sweep/clients"
	"places-sweep/config"
	"places-sweep/handlers"
	"places-sweep/services"
	"places-sweep/storage"
	"places-sweep/types"
)

func loadSettings(envFile string) (config.Settings, error) {
	settings, err := config.Load(envFile)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return settings, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func categoriesOrDefault(flagValue string, defaults []string) []string {
	if strings.TrimSpace(flagValue) == "" {
		return defaults
	}
	return config.SplitList(flagValue)
}

func parseBoundingBox(value string) (services.BoundingBox, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return services.BoundingBox{}, fmt.Errorf("bounding box must be south,west,north,east, got %q", value)
	}
	nums := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return services.BoundingBox{}, fmt.Errorf("invalid bounding box value %q: %w", part, err)
		}
		nums[i] = v
	}
	return services.BoundingBox{South: nums[0], West: nums[1], North: nums[2], East: nums[3]}, nil
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	envFile := fs.String("env", config.DefaultEnvFile, "Optional .env file with GEOAPIFY_API_KEY")
	pointsFile := fs.String("points", "", "CSV with latitude, longitude, radius_m and optional label columns")
	bbox := fs.String("bbox", "", "Sweep a grid over south,west,north,east instead of -points")
	spacing := fs.Float64("spacing", 5000, "Grid spacing in meters (with -bbox)")
	radius := fs.Int("radius", 5000, "Query radius in meters (with -bbox)")
	categories := fs.String("categories", "", "Comma-separated categories (default SWEEP_CATEGORIES)")
	limit := fs.Int("limit", 0, "Max results per point (default SWEEP_LIMIT)")
	concurrency := fs.Int("concurrency", 0, "Points queried in parallel (default SWEEP_CONCURRENCY)")
	output := fs.String("output", "output/businesses.json", "Sweep document path (.json, .json.gz or .json.zst)")
	failuresOut := fs.String("failures", "", "Write the sweep run summary and failure log to this JSON file")
	csvOut := fs.String("csv", "", "Also export a flattened CSV")
	xlsxOut := fs.String("xlsx", "", "Also export a flattened Excel workbook")
	uploadS3 := fs.Bool("s3", false, "Upload the document to S3_SWEEP_BUCKET")
	useDynamo := fs.Bool("dynamodb", false, "Store businesses in DYNAMODB_BUSINESSES_TABLE")
	sqlitePath := fs.String("sqlite", "", "Store businesses and the run in this SQLite database (default SQLITE_PATH)")
	fs.Parse(args)

	settings, err := loadSettings(*envFile)
	if err != nil {
		return err
	}
	if *concurrency > 0 {
		settings.Sweep.Concurrency = *concurrency
	}
	if *limit > 0 {
		settings.Sweep.Limit = *limit
	}
	if *sqlitePath != "" {
		settings.Storage.SQLitePath = *sqlitePath
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	var points []types.QueryPoint
	switch {
	case *pointsFile != "" && *bbox != "":
		return fmt.Errorf("use either -points or -bbox, not both")
	case *pointsFile != "":
		points, err = services.ReadSweepPoints(*pointsFile)
	case *bbox != "":
		var box services.BoundingBox
		if box, err = parseBoundingBox(*bbox); err == nil {
			points, err = services.GenerateGrid(box, *spacing, *radius)
		}
	default:
		return fmt.Errorf("one of -points or -bbox is required")
	}
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := clients.NewPlacesClient(settings.Places)
	sweeper := services.NewSweeper(client, services.WithConcurrency(settings.Sweep.Concurrency))
	categoryList := categoriesOrDefault(*categories, settings.Sweep.Categories)

	result, err := sweeper.Sweep(ctx, points, categoryList, settings.Sweep.Limit)
	if err != nil {
		return err
	}
	businesses := result.Businesses()
	run := result.Run()

	if err := storage.WriteDocument(*output, businesses); err != nil {
		return err
	}
	run.DocumentKey = *output

	if *csvOut != "" || *xlsxOut != "" {
		records := services.BusinessRecords(businesses, false)
		if *csvOut != "" {
			if err := services.ExportCSV(records, *csvOut); err != nil {
				log.Printf("⚠️  CSV export skipped: %v", err)
			}
		}
		if *xlsxOut != "" {
			if err := services.ExportExcel(records, *xlsxOut, services.DefaultSheetName); err != nil {
				log.Printf("⚠️  Excel export skipped: %v", err)
			}
		}
	}

	if *uploadS3 {
		store, err := storage.NewS3DocumentStoreFromRegion(ctx, settings.Storage.AWSRegion, settings.Storage.S3Bucket)
		if err != nil {
			return err
		}
		key := storage.SweepKey(settings.Storage.DocumentPrefix, result.SweepID)
		if err := store.Put(ctx, key, businesses); err != nil {
			return err
		}
		run.DocumentKey = fmt.Sprintf("s3://%s/%s", settings.Storage.S3Bucket, key)
	}

	if *useDynamo {
		if err := saveToDynamoDB(ctx, settings.Storage, businesses, run); err != nil {
			return err
		}
	}

	if settings.Storage.SQLitePath != "" {
		if err := saveToSQLite(ctx, settings.Storage.SQLitePath, businesses, run); err != nil {
			return err
		}
	}

	if *failuresOut != "" {
		if err := writeJSONFile(*failuresOut, run); err != nil {
			return err
		}
		log.Printf("📝 Wrote sweep log with %d point failures to %s", len(run.Failures), *failuresOut)
	}

	log.Printf("✅ Collected %d unique businesses from %d points into %s", result.Len(), len(points), *output)
	return nil
}

func saveToDynamoDB(ctx context.Context, cfg config.StorageConfig, businesses []types.Business, run types.SweepRun) error {
	if cfg.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_BUSINESSES_TABLE is not set")
	}
	client, err := storage.NewDynamoDBClient(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	if _, err := storage.NewBusinessDynamoDBRepository(client, cfg.DynamoDBTable).SaveAll(ctx, businesses); err != nil {
		return err
	}
	if cfg.RunsTable != "" {
		if err := storage.NewSweepRunDynamoDBRepository(client, cfg.RunsTable).SaveRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func saveToSQLite(ctx context.Context, path string, businesses []types.Business, run types.SweepRun) error {
	store, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.SaveAll(ctx, businesses); err != nil {
		return err
	}
	return store.SaveRun(ctx, run)
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	envFile := fs.String("env", config.DefaultEnvFile, "Optional .env file with GEOAPIFY_API_KEY")
	lat := fs.Float64("lat", 40.7440, "Latitude")
	lon := fs.Float64("lon", -73.9903, "Longitude")
	radius := fs.Int("radius", 1000, "Radius in meters")
	categories := fs.String("categories", "", "Comma-separated categories (default SWEEP_CATEGORIES)")
	limit := fs.Int("limit", 0, "Max results (default SWEEP_LIMIT)")
	asJSON := fs.Bool("json", false, "Print normalized businesses as JSON")
	includeRaw := fs.Bool("raw", false, "Keep the upstream payload in JSON output")
	fs.Parse(args)

	settings, err := loadSettings(*envFile)
	if err != nil {
		return err
	}
	if *limit > 0 {
		settings.Sweep.Limit = *limit
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := clients.NewPlacesClient(settings.Places)
	point := types.QueryPoint{Latitude: *lat, Longitude: *lon, RadiusMeters: *radius}
	raw, err := client.SearchNearby(ctx, point, categoriesOrDefault(*categories, settings.Sweep.Categories), settings.Sweep.Limit)
	if err != nil {
		return err
	}

	businesses, skipped := services.NormalizeAll(raw)
	if skipped > 0 {
		log.Printf("⚠️  Skipped %d records without a stable identifier", skipped)
	}

	if *asJSON {
		if !*includeRaw {
			for i := range businesses {
				businesses[i] = businesses[i].WithoutRaw()
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(businesses)
	}

	for _, b := range businesses {
		name, address := "Unknown", ""
		if b.Name != nil {
			name = *b.Name
		}
		if b.FormattedAddress != nil {
			address = *b.FormattedAddress
		}
		fmt.Printf("%s - %s\n", name, address)
	}
	return nil
}

func runGrid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	bbox := fs.String("bbox", "", "Bounding box as south,west,north,east (required)")
	spacing := fs.Float64("spacing", 5000, "Distance between points in meters")
	radius := fs.Int("radius", 5000, "Query radius assigned to every point, in meters")
	output := fs.String("output", "data/points.csv", "Points CSV to write")
	fs.Parse(args)

	if *bbox == "" {
		return fmt.Errorf("-bbox is required")
	}
	box, err := parseBoundingBox(*bbox)
	if err != nil {
		return err
	}
	points, err := services.GenerateGrid(box, *spacing, *radius)
	if err != nil {
		return err
	}
	if err := services.WriteSweepPoints(*output, points); err != nil {
		return err
	}

	log.Printf("🗺️  Wrote %d sweep points to %s", len(points), *output)
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	input := fs.String("input", "", "Sweep document to read (required)")
	csvOut := fs.String("csv", "", "CSV output path")
	xlsxOut := fs.String("xlsx", "", "Excel output path")
	sheet := fs.String("sheet", services.DefaultSheetName, "Excel sheet name")
	geojsonOut := fs.String("geojson", "", "GeoJSON output path")
	includeRaw := fs.Bool("include-raw", false, "Add the upstream payload as a JSON column")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input is required")
	}
	if *csvOut == "" && *xlsxOut == "" && *geojsonOut == "" {
		return fmt.Errorf("at least one of -csv, -xlsx or -geojson is required")
	}

	businesses, err := storage.ReadDocument(*input)
	if err != nil {
		return err
	}
	records := services.BusinessRecords(businesses, *includeRaw)

	if *csvOut != "" {
		if err := services.ExportCSV(records, *csvOut); err != nil {
			return err
		}
	}
	if *xlsxOut != "" {
		if err := services.ExportExcel(records, *xlsxOut, *sheet); err != nil {
			return err
		}
	}
	if *geojsonOut != "" {
		collection := services.BusinessesToGeoJSON(businesses)
		if err := writeJSONFile(*geojsonOut, collection); err != nil {
			return err
		}
		log.Printf("🗺️  Wrote %d features to %s", len(collection.Features), *geojsonOut)
	}
	return nil
}

func runPlot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	pointsFile := fs.String("points", "", "Plot sweep points from this CSV")
	input := fs.String("input", "", "Plot business density from this sweep document")
	output := fs.String("output", "", "PNG output path (required)")
	title := fs.String("title", "", "Image title")
	width := fs.Int("width", 1000, "Image width in pixels")
	height := fs.Int("height", 1000, "Image height in pixels")
	cell := fs.Int("cell", 10, "Density bin size in pixels")
	fs.Parse(args)

	if *output == "" {
		return fmt.Errorf("-output is required")
	}
	if (*pointsFile == "") == (*input == "") {
		return fmt.Errorf("exactly one of -points or -input is required")
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := services.PlotOptions{Width: *width, Height: *height, Title: *title, CellSize: *cell}

	var render func(*os.File) error
	if *pointsFile != "" {
		points, err := services.ReadSweepPoints(*pointsFile)
		if err != nil {
			return err
		}
		render = func(f *os.File) error { return services.RenderPointsPNG(f, points, opts) }
	} else {
		businesses, err := storage.ReadDocument(*input)
		if err != nil {
			return err
		}
		coords := services.CollectCoordinates(services.BusinessRecords(businesses, false))
		if len(coords) == 0 {
			return fmt.Errorf("no valid latitude/longitude pairs found in %s", *input)
		}
		render = func(f *os.File) error { return services.RenderDensityPNG(f, coords, opts) }
	}

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer file.Close()

	if err := render(file); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}

	log.Printf("🖼️  Saved plot to %s", *output)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	envFile := fs.String("env", config.DefaultEnvFile, "Optional .env file")
	input := fs.String("input", "", "Serve businesses from this sweep document")
	sqlitePath := fs.String("sqlite", "", "Serve businesses and sweep runs from this SQLite database")
	useDynamo := fs.Bool("dynamodb", false, "Serve from DYNAMODB_BUSINESSES_TABLE and DYNAMODB_SWEEP_RUNS_TABLE")
	port := fs.String("port", "", "Listen port (default PORT)")
	fs.Parse(args)

	settings, err := loadSettings(*envFile)
	if err != nil {
		return err
	}
	if *port != "" {
		settings.Server.Port = *port
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		businesses storage.BusinessRepository
		runs       storage.SweepRunRepository
	)
	switch {
	case *input != "":
		docs, err := storage.ReadDocument(*input)
		if err != nil {
			return err
		}
		businesses = storage.NewMemoryBusinessRepository(docs)
		log.Printf("📂 Loaded %d businesses from %s", len(docs), *input)
	case *sqlitePath != "":
		store, err := storage.OpenSQLite(ctx, *sqlitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		businesses, runs = store, store
	case *useDynamo:
		if settings.Storage.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_BUSINESSES_TABLE is not set")
		}
		client, err := storage.NewDynamoDBClient(ctx, settings.Storage.AWSRegion)
		if err != nil {
			return err
		}
		businesses = storage.NewBusinessDynamoDBRepository(client, settings.Storage.DynamoDBTable)
		if settings.Storage.RunsTable != "" {
			runs = storage.NewSweepRunDynamoDBRepository(client, settings.Storage.RunsTable)
		}
	default:
		return fmt.Errorf("one of -input, -sqlite or -dynamodb is required")
	}

	server := &http.Server{
		Addr:         ":" + settings.Server.Port,
		Handler:      handlers.NewRouter(businesses, runs),
		ReadTimeout:  settings.Server.ReadTimeout,
		WriteTimeout: settings.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌍 Server running on http://:%s", settings.Server.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("🛑 Shutting down server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
