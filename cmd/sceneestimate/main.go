// Command sceneestimate estimates scene geometry from a pupil-data JSON
// file and writes the result as JSON for downstream consumers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"

	"github.com/gazelab/eyescene/scenesearch"
)

var logger = golog.NewDevelopmentLogger("sceneestimate")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	opts, label, inPath, outPath, err := parseArgs(args)
	if err != nil {
		return err
	}

	data, err := scenesearch.NewPupilDataFromJSONFile(inPath)
	if err != nil {
		return err
	}
	pass, err := data.Pass(label)
	if err != nil {
		return err
	}

	estimator, err := scenesearch.NewEstimator(opts, logger)
	if err != nil {
		return err
	}
	geometry, err := estimator.Estimate(context.Background(), pass)
	if err != nil {
		return err
	}
	return geometry.WriteToJSONFile(outPath)
}

func parseArgs(args []string) (scenesearch.SearchOptions, scenesearch.FitLabel, string, string, error) {
	opts := scenesearch.DefaultSearchOptions()

	flags := flag.NewFlagSet("", flag.ContinueOnError)
	fitLabel := flags.String("fit", "initial", "fitting pass to use: initial, sceneConstrained, radiusSmoothed")
	numBins := flags.Int("bins", scenesearch.DefaultNumBins, "per-axis spatial bin count for observation selection")
	numSearches := flags.Int("searches", opts.NumSearches[0], "multi-start runs for the first search stage")
	numRaySearches := flags.Int("raytrace-searches", opts.NumSearches[1], "multi-start runs for the ray-traced stage")
	rayTrace := flags.Bool("raytrace", false, "refine with corneal ray tracing")
	seed := flags.Int64("seed", 1, "random seed for the multi-start searches")
	workers := flags.Int("workers", 0, "max parallel runs; 0 uses all processors")
	if err := flags.Parse(args); err != nil {
		return opts, 0, "", "", err
	}
	if flags.NArg() < 2 {
		return opts, 0, "", "", fmt.Errorf("sceneestimate needs <pupil data json in> <scene geometry json out>")
	}

	label, err := scenesearch.ParseFitLabel(*fitLabel)
	if err != nil {
		return opts, 0, "", "", err
	}

	opts.NumBins = *numBins
	opts.NumSearches = [2]int{*numSearches, *numRaySearches}
	opts.UseRayTrace = *rayTrace
	opts.Seed = *seed
	if *workers > 0 {
		opts.NumWorkers = *workers
	}
	return opts, label, flags.Arg(0), flags.Arg(1), nil
}
