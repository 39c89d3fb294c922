package normalize

import "fmt"

// FieldError reports a cell whose text could not be converted.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parsing %s %q", e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// UnknownTeamError reports a team name outside the known vocabulary.
type UnknownTeamError struct {
	Name string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %q", e.Name)
}
