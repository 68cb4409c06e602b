package quote

// StageKind classifies a pipeline stage result. Soft failures degrade the
// response; fatal failures abort the submission.
type StageKind int

const (
	StageOK StageKind = iota
	StageSoft
	StageFatal
)

func (k StageKind) String() string {
	switch k {
	case StageOK:
		return "ok"
	case StageSoft:
		return "soft_failure"
	case StageFatal:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// StageResult is the explicit outcome of one pipeline stage.
type StageResult struct {
	Kind   StageKind
	Reason string
	Err    error
}

func stageOK() StageResult {
	return StageResult{Kind: StageOK}
}

func stageSoft(reason string, err error) StageResult {
	return StageResult{Kind: StageSoft, Reason: reason, Err: err}
}

func stageFatal(reason string, err error) StageResult {
	return StageResult{Kind: StageFatal, Reason: reason, Err: err}
}
