package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/build"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
)

// loadCUE evaluates the CUE package in dir together with the registered
// overlays, exports its "config" field and decodes it like a YAML document.
func loadCUE(dir string) (*Document, error) {
	insts := load.Instances([]string{"."}, &load.Config{
		Dir:     dir,
		Package: CUEPackage,
		Overlay: ResolveOverlays(dir),
	})
	if len(insts) == 0 {
		return nil, fmt.Errorf("config %s: no CUE instances", dir)
	}
	inst := insts[0]
	if inst.Err != nil {
		return nil, shapeError(dir, "load cue package: %s", describeCUEError(inst.Err))
	}

	sources := cueSources(dir, inst.BuildFiles)
	if len(sources) == 0 {
		return nil, shapeError(dir, "no %q CUE files found", CUEPackage)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, shapeError(dir, "build cue package: %s", describeCUEError(err))
	}
	root := value.LookupPath(cue.ParsePath("config"))
	if !root.Exists() {
		return nil, shapeError(dir, "cue package does not define config")
	}
	if err := root.Validate(cue.Concrete(true)); err != nil {
		return nil, shapeError(dir, "%s", describeCUEError(err))
	}
	raw, err := root.MarshalJSON()
	if err != nil {
		return nil, shapeError(dir, "export config: %s", describeCUEError(err))
	}

	doc, err := Decode(raw, dir)
	if err != nil {
		return nil, err
	}
	doc.Sources = sources
	return doc, nil
}

// cueSources lists the on-disk files of the instance; overlays have no file.
func cueSources(dir string, files []*build.File) []string {
	paths := make([]string, 0, len(files))
	overlay := filepath.Join(dir, SchemaOverlayPath)
	for _, f := range files {
		if f == nil || f.Filename == overlay {
			continue
		}
		path := f.Filename
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		paths = append(paths, path)
	}
	return existingFiles(paths)
}

func describeCUEError(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}

func existingFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
