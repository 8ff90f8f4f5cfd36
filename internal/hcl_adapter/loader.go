package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{evalCtx: newEvalContext()}
}

// Load parses every .hcl file under paths and merges their blocks into one
// pipeline. Node names must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	pipeline := &config.Pipeline{}
	declared := make(map[string]hcl.Range)

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		decl, err := l.decodeBody(ctx, file, hclFile.Body)
		if err != nil {
			return nil, err
		}
		for _, n := range decl.Nodes {
			if prev, dup := declared[n.Name]; dup {
				return nil, fmt.Errorf("%s: node %q already declared at %s", n.Range, n.Name, prev)
			}
			declared[n.Name] = n.Range
		}
		pipeline.Nodes = append(pipeline.Nodes, decl.Nodes...)
		pipeline.Connections = append(pipeline.Connections, decl.Connections...)
	}

	logger.Debug("HCL loading complete.", "nodes", len(pipeline.Nodes), "connections", len(pipeline.Connections))
	return pipeline, nil
}

// LoadBytes parses a single in-memory pipeline document. filename is only
// used in diagnostics.
func (l *Loader) LoadBytes(ctx context.Context, filename string, src []byte) (*config.Pipeline, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decodeBody(ctx, filename, hclFile.Body)
}

func (l *Loader) decodeBody(ctx context.Context, file string, body hcl.Body) (*config.Pipeline, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	pipeline := &config.Pipeline{}
	for _, n := range root.Nodes {
		decl, err := l.translateNode(ctx, n)
		if err != nil {
			return nil, err
		}
		pipeline.Nodes = append(pipeline.Nodes, decl)
	}
	for _, c := range root.Connects {
		decl, err := l.translateConnect(ctx, c)
		if err != nil {
			return nil, err
		}
		pipeline.Connections = append(pipeline.Connections, decl)
	}
	return pipeline, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. Missing paths are skipped.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}
