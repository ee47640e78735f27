package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coastcube/filmstrip/internal/tide"
)

func main() {
	var (
		lat      float64
		lon      float64
		timeStr  string
		span     time.Duration
		interval time.Duration
	)
	flag.Float64Var(&lat, "lat", -27.47, "Latitude in degrees north")
	flag.Float64Var(&lon, "lon", 153.02, "Longitude in degrees east")
	flag.StringVar(&timeStr, "time", "", "UTC start time (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	flag.DurationVar(&span, "span", 24*time.Hour, "Period to tabulate heights over")
	flag.DurationVar(&interval, "interval", time.Hour, "Spacing between tabulated heights")
	flag.Parse()

	var t time.Time
	if timeStr == "" {
		t = time.Now().UTC()
	} else {
		var err error
		t, err = time.Parse(time.RFC3339, timeStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	model := tide.New(lat, lon)
	end := t.Add(span)

	lo, hi := model.Range(t, end, interval)
	fmt.Printf("Tide heights at %.4f, %.4f\n", lat, lon)
	fmt.Printf("  Window: %s to %s\n", t.Format(time.RFC3339), end.Format(time.RFC3339))
	fmt.Printf("  Range:  %.3f m to %.3f m\n", lo, hi)

	for ts := t; ts.Before(end); ts = ts.Add(interval) {
		fmt.Printf("  %s  %+.3f m\n", ts.Format(time.RFC3339), model.Height(ts))
	}
}
