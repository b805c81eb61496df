package pipeline

import "fmt"

// Stage names the step a run failed in.
type Stage string

const (
	StageInput      Stage = "input"
	StagePreprocess Stage = "preprocess"
	StageAnalyze    Stage = "analyze"
	StageExtract    Stage = "extract"
	StageRender     Stage = "render"
	StageWrite      Stage = "write"
)

// State is a point in the linear run lifecycle.
type State string

const (
	StateStart        State = "start"
	StatePreprocessed State = "preprocessed"
	StateAnalyzed     State = "analyzed"
	StateExtracted    State = "extracted"
	StateRendered     State = "rendered"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Failure is the terminal error of a run.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
