package graph

import "testing"

func TestBasicGraphOperations(t *testing.T) {
	g := New()

	nodeA := g.AddInstance("ColorGrading")
	nodeB := g.AddInstance("Blur")
	nodeC := g.AddInstance("Output")

	if len(g.Instances()) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(g.Instances()))
	}

	if err := g.Connect(nodeA, "output", nodeB, "input"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := g.Connect(nodeB, "output", nodeC, "input"); err != nil {
		t.Fatalf("connect b->c: %v", err)
	}

	if len(g.Connections()) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(g.Connections()))
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		t.Fatalf("execution order: %v", err)
	}
	want := []NodeId{nodeA, nodeB, nodeC}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestCycleDetection(t *testing.T) {
	g := New()

	nodeA := g.AddInstance("Node1")
	nodeB := g.AddInstance("Node2")

	if err := g.Connect(nodeA, "out", nodeB, "in"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := g.Connect(nodeB, "out", nodeA, "in"); err != nil {
		t.Fatalf("connect b->a: %v", err)
	}

	if !g.HasCycles() {
		t.Fatalf("expected cycle to be detected")
	}

	if _, err := g.ExecutionOrder(); !IsCyclicGraph(err) {
		t.Fatalf("expected cyclic graph error, got %v", err)
	}
}

func TestInputValueSetting(t *testing.T) {
	g := New()
	node := g.AddInstance("ColorGrading")

	if err := g.SetInputValue(node, "brightness", FloatValue(1.5)); err != nil {
		t.Fatalf("set brightness: %v", err)
	}
	if err := g.SetInputValue(node, "enabled", BoolValue(true)); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	instance, ok := g.Instance(node)
	if !ok {
		t.Fatalf("expected instance to exist")
	}
	if len(instance.InputValues) != 2 {
		t.Fatalf("expected 2 input values, got %d", len(instance.InputValues))
	}
}

func TestSetInputValueRejectsConnection(t *testing.T) {
	g := New()
	a := g.AddInstance("A")
	b := g.AddInstance("B")

	err := g.SetInputValue(b, "in", ConnectionValue{FromNode: a, OutputName: "out"})
	if err == nil {
		t.Fatalf("expected an error setting a ConnectionValue directly")
	}
}

func TestNodeRemoval(t *testing.T) {
	g := New()

	nodeA := g.AddInstance("A")
	nodeB := g.AddInstance("B")
	nodeC := g.AddInstance("C")

	if err := g.Connect(nodeA, "out", nodeB, "in"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := g.Connect(nodeB, "out", nodeC, "in"); err != nil {
		t.Fatalf("connect b->c: %v", err)
	}

	if _, ok := g.RemoveInstance(nodeB); !ok {
		t.Fatalf("expected node b to be removed")
	}

	if len(g.Connections()) != 0 {
		t.Fatalf("expected all connections touching b to be gone, got %d", len(g.Connections()))
	}
	if len(g.Instances()) != 2 {
		t.Fatalf("expected 2 instances remaining, got %d", len(g.Instances()))
	}
}

func TestConnectRejectsDuplicateInput(t *testing.T) {
	g := New()
	a := g.AddInstance("A")
	b := g.AddInstance("B")
	c := g.AddInstance("C")

	if err := g.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := g.Connect(c, "out", b, "in"); err == nil {
		t.Fatalf("expected an error connecting to an already-connected input")
	}
}

func TestConnectRejectsSelfConnection(t *testing.T) {
	g := New()
	a := g.AddInstance("A")

	if err := g.Connect(a, "out", a, "in"); err == nil {
		t.Fatalf("expected an error connecting a node to itself")
	}
}

func TestFindOutputNodes(t *testing.T) {
	g := New()
	a := g.AddInstance("A")
	b := g.AddInstance("B")
	c := g.AddInstance("C")

	if err := g.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}

	outputs := g.FindOutputNodes()
	if len(outputs) != 2 {
		t.Fatalf("expected 2 output nodes (b, c), got %d", len(outputs))
	}

	found := map[NodeId]bool{}
	for _, id := range outputs {
		found[id] = true
	}
	if !found[b] || !found[c] {
		t.Fatalf("expected b and c among output nodes, got %v", outputs)
	}
}
