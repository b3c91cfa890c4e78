package library

import "path/filepath"

// NodeDefinition is the fully-resolved, immutable description of a node
// kind loaded from disk: the parsed Node plus, for shader-executed nodes,
// the absolute path to its WGSL source.
type NodeDefinition struct {
	node       Node
	shaderPath string
	folderPath string
}

// Node returns the parsed node.json contents.
func (d NodeDefinition) Node() Node { return d.node }

// ShaderPath returns the absolute path to this definition's WGSL shader
// source, or "" if this isn't a shader-executed node.
func (d NodeDefinition) ShaderPath() string { return d.shaderPath }

// FolderPath returns the absolute path to the folder this definition was
// loaded from.
func (d NodeDefinition) FolderPath() string { return d.folderPath }

// Name returns the node kind's name, a convenience for d.Node().Name.
func (d NodeDefinition) Name() string { return d.node.Name }

// relativeShaderPath resolves a shader source path relative to the node's
// folder, matching how node.json's Shader.source field is interpreted.
func relativeShaderPath(folderPath, source string) string {
	return filepath.Join(folderPath, source)
}
