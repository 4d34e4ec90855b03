package scenesearch

// Diagnostics is the payload handed to an external plotting collaborator
// after a completed job. The core produces the data but never renders
// it.
type Diagnostics struct {
	SelectedFrames []int     `json:"selected_frames"`
	BinEdgesX      []float64 `json:"bin_edges_x,omitempty"`
	BinEdgesY      []float64 `json:"bin_edges_y,omitempty"`
	Weights        []float64 `json:"weights"`

	Stages []StageDiagnostics `json:"stages"`
}

// StageDiagnostics records every multi-start run of one search stage.
// The run-indexed slices are parallel; the residual matrices are indexed
// run first, selected frame second.
type StageDiagnostics struct {
	RayTraced       bool        `json:"ray_traced"`
	Objectives      []float64   `json:"objectives"`
	Params          [][]float64 `json:"params"`
	CenterDistances [][]float64 `json:"center_distances"`
	ShapeErrors     [][]float64 `json:"shape_errors"`
	AreaErrors      [][]float64 `json:"area_errors"`
	ParamMean       []float64   `json:"param_mean"`
	ParamSD         []float64   `json:"param_sd"`
	BestRun         int         `json:"best_run"`
}

func stageDiagnostics(runs []runResult, rayTraced bool, mean, sd []float64) StageDiagnostics {
	diag := StageDiagnostics{
		RayTraced: rayTraced,
		ParamMean: mean,
		ParamSD:   sd,
		BestRun:   bestRun(runs),
	}
	for _, r := range runs {
		diag.Objectives = append(diag.Objectives, r.Objective)
		diag.Params = append(diag.Params, r.Params)
		diag.CenterDistances = append(diag.CenterDistances, r.CenterDistances)
		diag.ShapeErrors = append(diag.ShapeErrors, r.ShapeErrors)
		diag.AreaErrors = append(diag.AreaErrors, r.AreaErrors)
	}
	return diag
}
