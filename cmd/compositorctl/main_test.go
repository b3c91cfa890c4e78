package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGraphBuildsInstancesAndConnections(t *testing.T) {
	descriptor := `{
		"instances": [
			{"id": 0, "definition_name": "ImageSource", "input_values": {"path": {"File": "input.png"}}},
			{"id": 1, "definition_name": "Invert", "input_values": {}}
		],
		"connections": [
			{"from": 0, "from_output": "output", "to": 1, "to_input": "input"}
		]
	}`

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(path, []byte(descriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	g, err := loadGraph(path)
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}

	if len(g.Instances()) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(g.Instances()))
	}
	if len(g.Connections()) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(g.Connections()))
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		t.Fatalf("execution order: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("expected 2 nodes in execution order, got %d", len(order))
	}
}

func TestLoadGraphRejectsUnknownConnectionTarget(t *testing.T) {
	descriptor := `{
		"instances": [
			{"id": 0, "definition_name": "ImageSource", "input_values": {}}
		],
		"connections": [
			{"from": 0, "from_output": "output", "to": 99, "to_input": "input"}
		]
	}`

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(path, []byte(descriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	if _, err := loadGraph(path); err == nil {
		t.Fatalf("expected an error for a connection referencing an unknown instance")
	}
}

func TestParseTextureFormat(t *testing.T) {
	if _, err := parseTextureFormat("rgba8unorm"); err != nil {
		t.Fatalf("rgba8unorm: %v", err)
	}
	if _, err := parseTextureFormat("bgra8unorm"); err != nil {
		t.Fatalf("bgra8unorm: %v", err)
	}
	if _, err := parseTextureFormat("nonsense"); err == nil {
		t.Fatalf("expected an error for an unsupported format name")
	}
}
