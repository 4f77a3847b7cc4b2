package volume

import "fmt"

// Step names reported in StepError.
const (
	StepExamine      = "examine"
	StepListVLDB     = "listvldb"
	StepRelease      = "release"
	StepCheckVolumes = "checkvolumes"
	StepCreate       = "create"
	StepRemove       = "remove"
	StepListVol      = "listvol"
	StepResolve      = "resolve"
)

// StepError reports which step of a multi-step operation failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
