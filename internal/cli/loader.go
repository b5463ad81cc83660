package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/mldulaney/scopehal-apps/internal/compiler"
	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
)

// LoadResult contains a parsed graph description.
type LoadResult struct {
	Spec      *compiler.GraphSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred while loading a graph.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadGraphSpec loads the CUE package in dir, or the single file path,
// and parses the graph description it holds.
func LoadGraphSpec(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing graph path: %v", err)}
	}

	dir, args := path, []string{"."}
	fileCount := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(cueFiles)
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
		}
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	spec, err := compiler.ParseGraph(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Spec: spec, CUEValue: value, FileCount: fileCount}, nil
}

// BuildGraph loads, validates and instantiates a graph description. The
// first validation error is returned; use validate to see them all.
func BuildGraph(path string, reg *filters.Registry) (*graph.Graph, error) {
	res, err := LoadGraphSpec(path)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(res.Spec, reg); len(errs) > 0 {
		return nil, &LoadError{Code: errs[0].Code, Message: fmt.Sprintf("%s: %s", errs[0].Field, errs[0].Message)}
	}
	g, err := compiler.Build(res.Spec, reg)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return g, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands. Validation codes
// E101 and up come from the compiler.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUnknownNode = "E008" // Node named on the command line not in the graph
	ErrCodeBadFlag     = "E009" // Malformed --input or --param value
	ErrCodeJournal     = "E010" // Journal could not be opened or read

	ErrCodeMalformed = "E100" // Graph description has the wrong shape
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeMalformed
	}
}
