package build

import (
	"errors"
	"fmt"
)

// The closed set of fatal failure kinds. None of them is retried here;
// retry policy belongs to the calling CI orchestration. The existence
// probe is deliberately absent: it never fails the run.
var (
	ErrEngineUnavailable = errors.New("container engine unavailable")
	ErrAuth              = errors.New("registry authentication failed")
	ErrBuild             = errors.New("image build failed")
	ErrPush              = errors.New("image push failed")

	// pre-flight sub-case of ErrBuild, detected before any subprocess
	ErrDockerfileMissing = fmt.Errorf("%w: dockerfile missing", ErrBuild)
)
