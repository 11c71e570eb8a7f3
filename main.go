package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `places-sweep: sweep the Geoapify Places API across a grid of points

Usage:
  places-sweep <command> [flags]

Commands:
  sweep    query every point of a CSV or bounding-box grid and merge the results
  query    run a single nearby search and print normalized businesses
  grid     generate a sweep points CSV from a bounding box
  export   flatten a sweep document to CSV, Excel or GeoJSON
  plot     render sweep points or business density as PNG
  serve    serve a sweep dataset over HTTP

Run "places-sweep <command> -h" for command flags.
`

func main() {
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "sweep":
		err = runSweep(args)
	case "query":
		err = runQuery(args)
	case "grid":
		err = runGrid(args)
	case "export":
		err = runExport(args)
	case "plot":
		err = runPlot(args)
	case "serve":
		err = runServe(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", command, err)
	}
}
