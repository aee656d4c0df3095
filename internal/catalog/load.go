package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadMode controls how errors are handled while compiling a directory.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

var (
	// ErrDirNotFound is returned by CompileDir for a missing directory.
	ErrDirNotFound = errors.New("catalog directory not found")
	// ErrNoFiles is returned by CompileDir for a directory without .cue files.
	ErrNoFiles = errors.New("no CUE files found")
)

// CompileSource compiles catalog source text. filename is only used in
// error positions.
func CompileSource(filename, src string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	c, errs := compileValue(v, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return c, nil
}

// CompileFile compiles a single catalog file.
func CompileFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return CompileSource(path, string(src))
}

// CompileDir loads every .cue file of dir as one CUE instance and compiles
// the node types it declares. With LoadModeCollectAll the returned catalog
// holds every type that compiled, alongside the errors of those that did
// not.
func CompileDir(dir string, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{fmt.Errorf("%w: %s", ErrDirNotFound, dir)}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("accessing catalog directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("%w: not a directory: %s", ErrDirNotFound, dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning directory: %w", err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("%w in %s", ErrNoFiles, dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded")}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	return compileValue(ctx.BuildInstance(inst), mode)
}

// FindCUEFiles walks dir and returns every .cue file path.
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
