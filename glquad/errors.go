package glquad

import (
	"errors"
	"fmt"
)

var ErrInitialized = errors.New("glquad: renderer already initialized")

// ShaderCompileError reports a shader that failed to compile.
type ShaderCompileError struct {
	Stage string
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("glquad: compile %s shader: %s", e.Stage, e.Log)
}

// ProgramLinkError reports a program that failed to link.
type ProgramLinkError struct {
	Log string
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("glquad: link program: %s", e.Log)
}

// LocationError reports an attribute or uniform missing from the linked
// program.
type LocationError struct {
	Name string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("glquad: no location for %s", e.Name)
}
