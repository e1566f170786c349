package engine

import (
	"reflect"
	"testing"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// node — короткий конструктор описания ноды для тестов.
func node(kind string, inputs map[string]domain.Input) domain.NodeDescriptor {
	if inputs == nil {
		inputs = map[string]domain.Input{}
	}
	return domain.NodeDescriptor{Kind: kind, Inputs: inputs}
}

func TestBuildGraph_Chain(t *testing.T) {
	wf := domain.Workflow{
		"1": node("textInput", map[string]domain.Input{"text": domain.LiteralInput("hi")}),
		"2": node("modelSelector", map[string]domain.Input{"prompt": domain.LinkInput("1", 0)}),
		"3": node("output", map[string]domain.Input{"image": domain.LinkInput("2", 0)}),
	}

	g := BuildGraph(wf)

	if !reflect.DeepEqual(g.Successors["1"], []string{"2"}) {
		t.Errorf("successors of 1: %v", g.Successors["1"])
	}
	if !reflect.DeepEqual(g.Successors["2"], []string{"3"}) {
		t.Errorf("successors of 2: %v", g.Successors["2"])
	}
	if len(g.Successors["3"]) != 0 {
		t.Errorf("3 should have no successors, got %v", g.Successors["3"])
	}

	want := map[string]int{"1": 0, "2": 1, "3": 1}
	if !reflect.DeepEqual(g.InDegree, want) {
		t.Errorf("expected in-degree %v, got %v", want, g.InDegree)
	}
}

func TestBuildGraph_IsolatedNodes(t *testing.T) {
	wf := domain.Workflow{
		"a": node("textInput", nil),
		"b": node("textInput", nil),
	}

	g := BuildGraph(wf)

	for _, id := range []string{"a", "b"} {
		succ, ok := g.Successors[id]
		if !ok {
			t.Errorf("node %s missing from successors", id)
		}
		if len(succ) != 0 {
			t.Errorf("node %s should have no successors", id)
		}
		deg, ok := g.InDegree[id]
		if !ok || deg != 0 {
			t.Errorf("node %s should have in-degree 0, got %d (present=%v)", id, deg, ok)
		}
	}
}

func TestBuildGraph_DanglingLinkSkipped(t *testing.T) {
	wf := domain.Workflow{
		"1": node("output", map[string]domain.Input{"image": domain.LinkInput("99", 0)}),
	}

	g := BuildGraph(wf)

	if g.InDegree["1"] != 0 {
		t.Errorf("dangling link must not add an edge, in-degree = %d", g.InDegree["1"])
	}
	if _, ok := g.Successors["99"]; ok {
		t.Error("missing source must not appear in the graph")
	}
}

func TestBuildGraph_DuplicateLinksFormOneEdge(t *testing.T) {
	wf := domain.Workflow{
		"1": node("textInput", nil),
		"2": node("concat", map[string]domain.Input{
			"left":  domain.LinkInput("1", 0),
			"right": domain.LinkInput("1", 0),
		}),
	}

	g := BuildGraph(wf)

	if len(g.Successors["1"]) != 1 {
		t.Errorf("expected one edge, got %v", g.Successors["1"])
	}
	if g.InDegree["2"] != 1 {
		t.Errorf("expected in-degree 1, got %d", g.InDegree["2"])
	}
}

func TestBuildGraph_SelfLink(t *testing.T) {
	wf := domain.Workflow{
		"1": node("echo", map[string]domain.Input{"in": domain.LinkInput("1", 0)}),
	}

	g := BuildGraph(wf)

	if g.InDegree["1"] != 1 {
		t.Errorf("self-link should count as in-degree 1, got %d", g.InDegree["1"])
	}
}
