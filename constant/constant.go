package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeShorts JobType = "shorts"
	JobTypeScene  JobType = "scene"
)

type ClipStatus string

const (
	ClipStatusPending    ClipStatus = "PENDING"
	ClipStatusProcessing ClipStatus = "PROCESSING"
	ClipStatusCompleted  ClipStatus = "COMPLETED"
	ClipStatusFailed     ClipStatus = "FAILED"
	ClipStatusAdjusted   ClipStatus = "ADJUSTED"
)

// IsTerminal reports whether polling for this clip is over.
func (s ClipStatus) IsTerminal() bool {
	switch s {
	case ClipStatusCompleted, ClipStatusFailed, ClipStatusAdjusted:
		return true
	default:
		return false
	}
}

type AdjustmentType string

const (
	AdjustmentNone     AdjustmentType = "none"
	AdjustmentFreeze   AdjustmentType = "freeze"
	AdjustmentKenBurns AdjustmentType = "ken_burns"
	AdjustmentLoop     AdjustmentType = "loop"
	AdjustmentTrim     AdjustmentType = "trim"
)

type StepName string

const (
	StepScript  StepName = "script"
	StepTTS     StepName = "tts"
	StepSplit   StepName = "split"
	StepPrompts StepName = "prompts"
	StepRender  StepName = "render"
	StepMerge   StepName = "merge"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusProcessing StepStatus = "PROCESSING"
	StepStatusCompleted  StepStatus = "COMPLETED"
	StepStatusFailed     StepStatus = "FAILED"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
