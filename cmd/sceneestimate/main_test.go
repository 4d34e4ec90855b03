package main

import (
	"testing"

	"go.viam.com/test"

	"github.com/gazelab/eyescene/scenesearch"
)

func TestParseArgs(t *testing.T) {
	opts, label, inPath, outPath, err := parseArgs([]string{
		"-fit", "radiusSmoothed",
		"-searches", "3",
		"-raytrace-searches", "5",
		"-raytrace",
		"-seed", "7",
		"pupil.json", "scene.json",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, label, test.ShouldEqual, scenesearch.FitRadiusSmoothed)
	test.That(t, inPath, test.ShouldEqual, "pupil.json")
	test.That(t, outPath, test.ShouldEqual, "scene.json")
	test.That(t, opts.NumSearches, test.ShouldResemble, [2]int{3, 5})
	test.That(t, opts.UseRayTrace, test.ShouldBeTrue)
	test.That(t, opts.Seed, test.ShouldEqual, int64(7))

	// The stages default independently when unset.
	opts, _, _, _, err = parseArgs([]string{"-searches", "4", "in.json", "out.json"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.NumSearches, test.ShouldResemble, [2]int{4, scenesearch.DefaultSearchOptions().NumSearches[1]})

	_, _, _, _, err = parseArgs([]string{"only-one-arg.json"})
	test.That(t, err, test.ShouldNotBeNil)

	_, _, _, _, err = parseArgs([]string{"-fit", "bogus", "in.json", "out.json"})
	test.That(t, err, test.ShouldNotBeNil)
}
