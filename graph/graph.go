// Package graph implements the mutable, host-editable NodeGraph: the set
// of NodeInstances (each referencing a library.NodeDefinition by name) and
// the Connections wiring their inputs and outputs together. A NodeGraph by
// itself only tracks structure — resolving it into GPU work is
// graph/executor's job.
package graph

import (
	"encoding/json"
	"sync"
)

// NodeId identifies a NodeInstance within a NodeGraph. IDs are assigned by
// AddInstance and are not reused until Clear resets ID assignment.
type NodeId uint64

// NodeInstance is one placed node in a graph: a reference to a node kind
// by name (looked up in a library.NodeLibrary at execution time) plus the
// current value of each of its inputs.
type NodeInstance struct {
	ID             NodeId
	DefinitionName string
	InputValues    map[string]InputValue
}

// Connection wires one node's output to another node's input.
type Connection struct {
	FromNode   NodeId
	FromOutput string
	ToNode     NodeId
	ToInput    string
}

// NodeGraph is a mutable collection of NodeInstances and the Connections
// between them, forming a directed graph that graph/executor evaluates
// bottom-up from source nodes to output nodes. The zero-value NodeGraph is
// not usable — construct one with New. Safe for concurrent use.
type NodeGraph interface {
	// AddInstance places a new instance of the named node kind in the
	// graph and returns its assigned NodeId.
	AddInstance(definitionName string) NodeId

	// RemoveInstance removes a node instance and every Connection
	// touching it, returning the removed instance and whether it
	// existed.
	RemoveInstance(id NodeId) (NodeInstance, bool)

	// Connect wires fromNode's fromOutput to toNode's toInput and sets
	// toInput's InputValue to the matching ConnectionValue.
	//
	// Parameters:
	//   - fromNode: the NodeId supplying the value
	//   - fromOutput: the name of fromNode's output slot
	//   - toNode: the NodeId consuming the value
	//   - toInput: the name of toNode's input slot
	//
	// Returns an error if either node doesn't exist, if fromNode equals
	// toNode, or (per the node_graph.rs original this is ported from) if
	// toInput is already connected — call Disconnect first to rewire it.
	Connect(fromNode NodeId, fromOutput string, toNode NodeId, toInput string) error

	// Disconnect removes the connection feeding toNode's toInput, if any.
	// Returns whether a connection was actually removed.
	Disconnect(toNode NodeId, toInput string) bool

	// SetInputValue sets a direct (unconnected) value for a node's input.
	// Returns an error if the node doesn't exist or if value is a
	// ConnectionValue (use Connect instead).
	SetInputValue(id NodeId, inputName string, value InputValue) error

	// Instance returns the instance with the given ID, if any.
	Instance(id NodeId) (NodeInstance, bool)

	// Instances returns every instance in the graph. The returned map
	// must not be mutated.
	Instances() map[NodeId]NodeInstance

	// Connections returns every connection in the graph. The returned
	// slice must not be mutated.
	Connections() []Connection

	// OutgoingConnections returns every connection whose FromNode is id.
	OutgoingConnections(id NodeId) []Connection

	// IncomingConnections returns every connection whose ToNode is id.
	IncomingConnections(id NodeId) []Connection

	// InputConnection returns the connection (if any) feeding id's
	// inputName input.
	InputConnection(id NodeId, inputName string) (Connection, bool)

	// HasCycles reports whether the graph, viewed as a directed graph of
	// node instances joined by connections, contains a cycle.
	HasCycles() bool

	// ExecutionOrder returns node IDs in a valid topological order —
	// every node appears after all of its upstream dependencies. Returns
	// a GraphError satisfying IsCyclicGraph if the graph has a cycle.
	ExecutionOrder() ([]NodeId, error)

	// FindOutputNodes returns every node with no outgoing connections —
	// the graph's sinks, each a candidate final result of execution.
	FindOutputNodes() []NodeId

	// Clear removes every instance and connection, resetting ID
	// assignment.
	Clear()
}

// nodeGraph is the only implementation of NodeGraph.
type nodeGraph struct {
	mu          sync.RWMutex
	instances   map[NodeId]NodeInstance
	connections []Connection
	nextID      NodeId
}

var _ NodeGraph = &nodeGraph{}

// New creates an empty NodeGraph.
func New() NodeGraph {
	return &nodeGraph{instances: make(map[NodeId]NodeInstance)}
}

func (g *nodeGraph) AddInstance(definitionName string) NodeId {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++

	g.instances[id] = NodeInstance{
		ID:             id,
		DefinitionName: definitionName,
		InputValues:    make(map[string]InputValue),
	}

	return id
}

func (g *nodeGraph) RemoveInstance(id NodeId) (NodeInstance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	instance, ok := g.instances[id]
	if !ok {
		return NodeInstance{}, false
	}

	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.FromNode != id && c.ToNode != id {
			kept = append(kept, c)
		}
	}
	g.connections = kept

	delete(g.instances, id)
	return instance, true
}

func (g *nodeGraph) Connect(fromNode NodeId, fromOutput string, toNode NodeId, toInput string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.instances[fromNode]; !ok {
		return errNodeNotFoundErr(fromNode)
	}
	if _, ok := g.instances[toNode]; !ok {
		return errNodeNotFoundErr(toNode)
	}
	if fromNode == toNode {
		return errSelfConnectionErr()
	}

	for _, c := range g.connections {
		if c.ToNode == toNode && c.ToInput == toInput {
			return errInputAlreadyConnectedErr()
		}
	}

	g.connections = append(g.connections, Connection{
		FromNode:   fromNode,
		FromOutput: fromOutput,
		ToNode:     toNode,
		ToInput:    toInput,
	})

	instance := g.instances[toNode]
	instance.InputValues[toInput] = ConnectionValue{FromNode: fromNode, OutputName: fromOutput}
	g.instances[toNode] = instance

	return nil
}

func (g *nodeGraph) Disconnect(toNode NodeId, toInput string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := -1
	for i, c := range g.connections {
		if c.ToNode == toNode && c.ToInput == toInput {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	g.connections = append(g.connections[:idx], g.connections[idx+1:]...)

	if instance, ok := g.instances[toNode]; ok {
		delete(instance.InputValues, toInput)
		g.instances[toNode] = instance
	}

	return true
}

func (g *nodeGraph) SetInputValue(id NodeId, inputName string, value InputValue) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	instance, ok := g.instances[id]
	if !ok {
		return errNodeNotFoundErr(id)
	}
	if _, isConnection := value.(ConnectionValue); isConnection {
		return errUseConnectMethodErr()
	}

	instance.InputValues[inputName] = value
	g.instances[id] = instance
	return nil
}

func (g *nodeGraph) Instance(id NodeId) (NodeInstance, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	instance, ok := g.instances[id]
	return instance, ok
}

func (g *nodeGraph) Instances() map[NodeId]NodeInstance {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.instances
}

func (g *nodeGraph) Connections() []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections
}

func (g *nodeGraph) OutgoingConnections(id NodeId) []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Connection
	for _, c := range g.connections {
		if c.FromNode == id {
			out = append(out, c)
		}
	}
	return out
}

func (g *nodeGraph) IncomingConnections(id NodeId) []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Connection
	for _, c := range g.connections {
		if c.ToNode == id {
			out = append(out, c)
		}
	}
	return out
}

func (g *nodeGraph) InputConnection(id NodeId, inputName string) (Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, c := range g.connections {
		if c.ToNode == id && c.ToInput == inputName {
			return c, true
		}
	}
	return Connection{}, false
}

func (g *nodeGraph) HasCycles() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[NodeId]bool, len(g.instances))
	recStack := make(map[NodeId]bool, len(g.instances))

	for id := range g.instances {
		if g.hasCycleFrom(id, visited, recStack) {
			return true
		}
	}
	return false
}

func (g *nodeGraph) hasCycleFrom(id NodeId, visited, recStack map[NodeId]bool) bool {
	if recStack[id] {
		return true
	}
	if visited[id] {
		return false
	}

	visited[id] = true
	recStack[id] = true

	for _, c := range g.connections {
		if c.FromNode != id {
			continue
		}
		if g.hasCycleFrom(c.ToNode, visited, recStack) {
			return true
		}
	}

	recStack[id] = false
	return false
}

func (g *nodeGraph) ExecutionOrder() ([]NodeId, error) {
	if g.HasCycles() {
		return nil, errCyclicGraphErr()
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[NodeId]int, len(g.instances))
	for id := range g.instances {
		inDegree[id] = 0
	}
	for _, c := range g.connections {
		inDegree[c.ToNode]++
	}

	var queue []NodeId
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]NodeId, 0, len(g.instances))
	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		order = append(order, id)

		for _, c := range g.connections {
			if c.FromNode != id {
				continue
			}
			inDegree[c.ToNode]--
			if inDegree[c.ToNode] == 0 {
				queue = append(queue, c.ToNode)
			}
		}
	}

	if len(order) != len(g.instances) {
		return nil, errCyclicGraphErr()
	}
	return order, nil
}

func (g *nodeGraph) FindOutputNodes() []NodeId {
	g.mu.RLock()
	defer g.mu.RUnlock()

	hasOutgoing := make(map[NodeId]bool, len(g.connections))
	for _, c := range g.connections {
		hasOutgoing[c.FromNode] = true
	}

	var out []NodeId
	for id := range g.instances {
		if !hasOutgoing[id] {
			out = append(out, id)
		}
	}
	return out
}

func (g *nodeGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instances = make(map[NodeId]NodeInstance)
	g.connections = nil
	g.nextID = 0
}

// jsonNodeInstance mirrors NodeInstance with its InputValues rendered in
// externally-tagged form.
type jsonNodeInstance struct {
	ID             NodeId                     `json:"id"`
	DefinitionName string                     `json:"definition_name"`
	InputValues    map[string]json.RawMessage `json:"input_values"`
}

// MarshalJSON renders a NodeInstance's input values in the tagged form
// node.json expects.
func (n NodeInstance) MarshalJSON() ([]byte, error) {
	values := make(map[string]json.RawMessage, len(n.InputValues))
	for name, v := range n.InputValues {
		raw, err := marshalInputValue(v)
		if err != nil {
			return nil, err
		}
		values[name] = raw
	}
	return json.Marshal(jsonNodeInstance{ID: n.ID, DefinitionName: n.DefinitionName, InputValues: values})
}

// UnmarshalJSON parses a NodeInstance, including its tagged input values.
func (n *NodeInstance) UnmarshalJSON(data []byte) error {
	var raw jsonNodeInstance
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	values := make(map[string]InputValue, len(raw.InputValues))
	for name, rawValue := range raw.InputValues {
		v, err := unmarshalInputValue(rawValue)
		if err != nil {
			return err
		}
		values[name] = v
	}

	n.ID = raw.ID
	n.DefinitionName = raw.DefinitionName
	n.InputValues = values
	return nil
}
