package library

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// NodeLibrary holds every NodeDefinition loaded from a Nodes/ folder,
// keyed by node name. Safe for concurrent reads once LoadFromDisk returns;
// a NodeLibrary is never mutated after construction.
type NodeLibrary struct {
	definitions map[string]NodeDefinition
	nodesFolder string
}

// LibraryBuilderOption configures LoadFromDisk.
type LibraryBuilderOption func(*libraryOptions)

type libraryOptions struct {
	scanWorkers int
}

// WithScanWorkers overrides the number of goroutines used to parse
// node.json files concurrently while scanning. Defaults to
// max(runtime.NumCPU()-1, 1).
func WithScanWorkers(n int) LibraryBuilderOption {
	return func(o *libraryOptions) {
		if n > 0 {
			o.scanWorkers = n
		}
	}
}

// LoadFromDisk recursively scans nodesFolder for node folders (any
// directory containing a node.json) and loads them all into a NodeLibrary.
// Loading is parallelized across a worker pool since each node.json parse
// and shader-path existence check is independent I/O.
//
// A folder that fails to parse is logged and skipped rather than failing
// the whole load — one malformed node definition shouldn't prevent the
// rest of the library from loading.
func LoadFromDisk(nodesFolder string, opts ...LibraryBuilderOption) (*NodeLibrary, error) {
	options := libraryOptions{scanWorkers: max(runtime.NumCPU()-1, 1)}
	for _, opt := range opts {
		opt(&options)
	}

	info, err := os.Stat(nodesFolder)
	if err != nil || !info.IsDir() {
		return nil, &NodesFolderNotFoundError{Path: nodesFolder}
	}

	nodeFolders, err := findNodeFolders(nodesFolder)
	if err != nil {
		return nil, err
	}

	definitions := make(map[string]NodeDefinition, len(nodeFolders))
	var mu sync.Mutex

	pool := worker.NewDynamicWorkerPool(options.scanWorkers, len(nodeFolders)+1, 30*time.Second)

	var wg sync.WaitGroup
	for i, folder := range nodeFolders {
		wg.Add(1)
		folder := folder
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()

				def, err := loadNodeDefinition(folder, nodesFolder)
				if err != nil {
					log.Printf("library: error loading node from %s: %v", folder, err)
					return nil, nil
				}

				mu.Lock()
				defer mu.Unlock()
				if existing, ok := definitions[def.Name()]; ok {
					log.Printf("library: duplicate node name %q (%s), keeping %s", def.Name(), folder, existing.FolderPath())
					return nil, nil
				}
				definitions[def.Name()] = def
				return nil, nil
			},
		})
	}
	wg.Wait()

	log.Printf("library: loaded %d node definitions from %s", len(definitions), nodesFolder)

	return &NodeLibrary{definitions: definitions, nodesFolder: nodesFolder}, nil
}

// findNodeFolders walks root and returns every directory containing a
// node.json. It does not recurse past a node folder — a node's own folder
// shouldn't contain nested node definitions.
func findNodeFolders(root string) ([]string, error) {
	var folders []string

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &IoError{Path: root, Err: err}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())

		if _, err := os.Stat(filepath.Join(path, "node.json")); err == nil {
			folders = append(folders, path)
			continue
		}

		nested, err := findNodeFolders(path)
		if err != nil {
			return nil, err
		}
		folders = append(folders, nested...)
	}

	return folders, nil
}

// loadNodeDefinition reads and parses a single node folder's node.json,
// resolving and verifying its shader path if it's a shader-executed node.
func loadNodeDefinition(folder, basePath string) (NodeDefinition, error) {
	nodeJSON := filepath.Join(folder, "node.json")

	content, err := os.ReadFile(nodeJSON)
	if err != nil {
		return NodeDefinition{}, &IoError{Path: nodeJSON, Err: err}
	}

	var node Node
	if err := json.Unmarshal(content, &node); err != nil {
		return NodeDefinition{}, &ParseError{Path: nodeJSON, Err: err}
	}

	var shaderPath string
	if plan, ok := node.Executor.(ShaderExecutionPlan); ok {
		shaderPath = relativeShaderPath(folder, plan.Source)
		if _, err := os.Stat(shaderPath); err != nil {
			return NodeDefinition{}, &ShaderNotFoundError{Path: shaderPath}
		}
	}

	return NodeDefinition{node: node, shaderPath: shaderPath, folderPath: folder}, nil
}

// Get returns the NodeDefinition registered under name, if any.
func (l *NodeLibrary) Get(name string) (NodeDefinition, bool) {
	def, ok := l.definitions[name]
	return def, ok
}

// Definitions returns every loaded NodeDefinition, keyed by node name. The
// returned map must not be mutated.
func (l *NodeLibrary) Definitions() map[string]NodeDefinition { return l.definitions }

// NodeNames returns the name of every loaded node kind.
func (l *NodeLibrary) NodeNames() []string {
	names := make([]string, 0, len(l.definitions))
	for name := range l.definitions {
		names = append(names, name)
	}
	return names
}

// NodesInSubfolder returns every definition whose Node.SubFolders includes
// subfolder, for UI organization.
func (l *NodeLibrary) NodesInSubfolder(subfolder string) []NodeDefinition {
	var out []NodeDefinition
	for _, def := range l.definitions {
		for _, f := range def.node.SubFolders {
			if f == subfolder {
				out = append(out, def)
				break
			}
		}
	}
	return out
}

// Search returns every definition whose name, search keywords, or short
// description contain query, case-insensitively.
func (l *NodeLibrary) Search(query string) []NodeDefinition {
	query = strings.ToLower(query)

	var out []NodeDefinition
	for _, def := range l.definitions {
		if strings.Contains(strings.ToLower(def.node.Name), query) {
			out = append(out, def)
			continue
		}
		if strings.Contains(strings.ToLower(def.node.ShortDescription), query) {
			out = append(out, def)
			continue
		}
		for _, kw := range def.node.SearchKeywords {
			if strings.Contains(strings.ToLower(kw), query) {
				out = append(out, def)
				break
			}
		}
	}
	return out
}
