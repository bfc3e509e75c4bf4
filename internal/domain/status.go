package domain

// EvaluationStatus is the outcome of evaluating one SKU in a pipeline run.
type EvaluationStatus string

const (
	EvaluationCompleted EvaluationStatus = "completed"
	EvaluationPartial   EvaluationStatus = "partial" // some stages were skipped for lack of data
	EvaluationFailed    EvaluationStatus = "failed"
)
