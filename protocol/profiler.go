package protocol

import "context"

// Profiler domain: precise JS coverage, used by the SPEC_FULL.md coverage
// supplement and end-to-end scenario 4 in spec.md §8.

const (
	CommandProfilerEnable              MethodType = "Profiler.enable"
	CommandProfilerDisable             MethodType = "Profiler.disable"
	CommandProfilerStartPreciseCoverage MethodType = "Profiler.startPreciseCoverage"
	CommandProfilerStopPreciseCoverage  MethodType = "Profiler.stopPreciseCoverage"
	CommandProfilerTakePreciseCoverage  MethodType = "Profiler.takePreciseCoverage"
)

type StartPreciseCoverageParams struct {
	CallCount  bool `json:"callCount,omitempty"`
	Detailed   bool `json:"detailed,omitempty"`
}

// CoverageRange is a covered byte-offset span within a script.
type CoverageRange struct {
	StartOffset int  `json:"startOffset"`
	EndOffset   int  `json:"endOffset"`
	Count       int  `json:"count"`
}

// FunctionCoverage groups ranges for one function (or the whole script, for
// the top-level entry).
type FunctionCoverage struct {
	FunctionName string          `json:"functionName"`
	Ranges       []CoverageRange `json:"ranges"`
	IsBlockCoverage bool         `json:"isBlockCoverage"`
}

// ScriptCoverage is one entry of Profiler.takePreciseCoverage's result,
// named directly in spec.md §8 scenario 4 ("two script-coverage entries").
type ScriptCoverage struct {
	ScriptID string             `json:"scriptId"`
	URL      string             `json:"url"`
	Functions []FunctionCoverage `json:"functions"`
}

type TakePreciseCoverageResult struct {
	Result []ScriptCoverage `json:"result"`
}

func ProfilerEnable() *profilerEnableAction { return &profilerEnableAction{} }

type profilerEnableAction struct{}

func (a *profilerEnableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandProfilerEnable, nil, nil)
}

func ProfilerDisable() *profilerDisableAction { return &profilerDisableAction{} }

type profilerDisableAction struct{}

func (a *profilerDisableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandProfilerDisable, nil, nil)
}

func StartPreciseCoverage() *startPreciseCoverageAction {
	return &startPreciseCoverageAction{p: StartPreciseCoverageParams{CallCount: true, Detailed: true}}
}

type startPreciseCoverageAction struct{ p StartPreciseCoverageParams }

func (a *startPreciseCoverageAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandProfilerStartPreciseCoverage, &a.p, nil)
}

func StopPreciseCoverage() *stopPreciseCoverageAction { return &stopPreciseCoverageAction{} }

type stopPreciseCoverageAction struct{}

func (a *stopPreciseCoverageAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandProfilerStopPreciseCoverage, nil, nil)
}

func TakePreciseCoverage() *takePreciseCoverageAction { return &takePreciseCoverageAction{} }

type takePreciseCoverageAction struct{}

func (a *takePreciseCoverageAction) Do(ctx context.Context, exec Executor) ([]ScriptCoverage, error) {
	var res TakePreciseCoverageResult
	if err := exec.Execute(ctx, CommandProfilerTakePreciseCoverage, nil, &res); err != nil {
		return nil, err
	}
	return res.Result, nil
}
