// Package schema validates artifacts against versioned JSON Schemas.
//
// Schemas live in a registry laid out as
//
//	<type>/<type>.v<version>.schema.json
//
// The manuscript schemas ship embedded in the binary. A directory given to
// [NewRegistry] is searched first, so deployments can add or override
// schemas without a rebuild.
package schema

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var embedded embed.FS

// Sentinel errors for schema lookups.
var (
	// ErrSchemaNotFound is returned when no schema file exists for a
	// type and version.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrSchemaLoad is returned when a schema file exists but cannot be
	// parsed or compiled.
	ErrSchemaLoad = errors.New("schema load failed")
)

type key struct{ artifactType, version string }

// Registry loads schemas on first use and keeps the compiled form for the
// life of the process. It is safe for concurrent use.
type Registry struct {
	sources []fs.FS

	mu       sync.Mutex
	compiled map[key]*jsonschema.Schema
}

// NewRegistry creates a registry over the embedded schemas. When dir is not
// empty it must exist and is searched before the embedded set.
func NewRegistry(dir string) (*Registry, error) {
	sub, err := fs.Sub(embedded, "schemas")
	if err != nil {
		return nil, err
	}
	sources := []fs.FS{sub}
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("schema directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("schema directory %s is not a directory", dir)
		}
		sources = append([]fs.FS{os.DirFS(dir)}, sources...)
	}
	return NewRegistryFS(sources...), nil
}

// NewRegistryFS creates a registry searching the given file systems in order.
func NewRegistryFS(sources ...fs.FS) *Registry {
	return &Registry{
		sources:  sources,
		compiled: make(map[key]*jsonschema.Schema),
	}
}

// Filename returns the registry path of the schema for a type and version.
func Filename(artifactType, version string) string {
	return path.Join(artifactType, fmt.Sprintf("%s.v%s.schema.json", artifactType, version))
}

// Get returns the compiled schema for artifactType at version.
//
// A missing file yields an error wrapping [ErrSchemaNotFound]; a file that
// cannot be compiled yields one wrapping [ErrSchemaLoad].
func (r *Registry) Get(artifactType, version string) (*jsonschema.Schema, error) {
	k := key{artifactType, version}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.compiled[k]; ok {
		return s, nil
	}

	name := Filename(artifactType, version)
	if !fs.ValidPath(name) || artifactType == "" || version == "" {
		return nil, fmt.Errorf("%w: %s v%s", ErrSchemaNotFound, artifactType, version)
	}
	data, err := r.read(name)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	url := "mem:///" + name
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaLoad, name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaLoad, name, err)
	}

	r.compiled[k] = s
	return s, nil
}

func (r *Registry) read(name string) ([]byte, error) {
	for _, src := range r.sources {
		data, err := fs.ReadFile(src, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %v", ErrSchemaLoad, name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
}

// List returns the available versions per artifact type, sorted oldest
// first. A non-empty artifactType restricts the listing to that type.
func (r *Registry) List(artifactType string) map[string][]string {
	out := map[string][]string{}
	for _, src := range r.sources {
		dirs, err := fs.ReadDir(src, ".")
		if err != nil {
			continue
		}
		for _, d := range dirs {
			name := d.Name()
			if !d.IsDir() || strings.HasPrefix(name, "_") || (artifactType != "" && name != artifactType) {
				continue
			}
			files, err := fs.ReadDir(src, name)
			if err != nil {
				continue
			}
			prefix := name + ".v"
			for _, f := range files {
				v, ok := strings.CutPrefix(f.Name(), prefix)
				if !ok {
					continue
				}
				if v, ok = strings.CutSuffix(v, ".schema.json"); ok && !slices.Contains(out[name], v) {
					out[name] = append(out[name], v)
				}
			}
		}
	}
	for t := range out {
		slices.SortFunc(out[t], compareVersions)
	}
	return out
}

// Latest returns the newest registered version of artifactType.
func (r *Registry) Latest(artifactType string) (string, bool) {
	versions := r.List(artifactType)[artifactType]
	if len(versions) == 0 {
		return "", false
	}
	return versions[len(versions)-1], true
}

// compareVersions orders dotted numeric versions ("1.10" after "1.9").
// Non-numeric parts compare lexically.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(as), len(bs)) {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, errX := strconv.Atoi(x)
		yn, errY := strconv.Atoi(y)
		if errX == nil && errY == nil {
			if xn != yn {
				return xn - yn
			}
			continue
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}
