package pdb

import "fmt"

// BuildError reports a failure encountered while assembling a PDB file
// with a Builder, naming the component that failed.
type BuildError struct {
	Component string
	Message   string
	Err       error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdb: build error in %s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("pdb: build error in %s: %s", e.Component, e.Message)
}

func (e *BuildError) Unwrap() error { return e.Err }
