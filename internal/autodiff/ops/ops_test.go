package ops

import (
	"math"
	"testing"

	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/autodiff/grads"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func variable(values ...float64) Input {
	return Input{Node: graph.NewLeaf(graph.Grad, graph.DefaultStream), Value: tensor.Vector(values...)}
}

func constant(values ...float64) Input {
	return Input{Node: graph.NewLeaf(graph.None, graph.DefaultStream), Value: tensor.Vector(values...)}
}

func output(value *tensor.Tensor, inputs ...Input) Input {
	nodes := make([]*graph.Node, len(inputs))
	for i, in := range inputs {
		nodes[i] = in.Node
	}
	return Input{Node: graph.NewNode(graph.DefaultStream, nodes...), Value: value}
}

// run executes step with grad seeded on its node.
func run(t *testing.T, step graph.Step, node *graph.Node, grad *tensor.Tensor, c *checkpoint.Checkpointer) *grads.Gradients {
	t.Helper()
	g := grads.New(node, grad)
	step.Execute(g, c)
	assert.Equal(t, 0, c.Len(), "every checkpointed state must be retrieved exactly as often as saved")
	return g
}

func gradOf(t *testing.T, g *grads.Gradients, in Input) *tensor.Tensor {
	t.Helper()
	v, ok := g.Get(in.Node.ID)
	require.Truef(t, ok, "no gradient for %s", in.Node.ID)
	return v
}

func TestAddStep(t *testing.T) {
	a, b := variable(1, 2), variable(3, 4)
	out := output(a.Value.Add(b.Value), a, b)
	s := NewAdd(out.Node, a.Node, b.Node)

	assert.Equal(t, out.Node.ID, s.Node())
	assert.Equal(t, []graph.NodeID{a.Node.ID, b.Node.ID}, s.Parents())
	assert.Equal(t, 1, s.Depth())

	g := run(t, s, out.Node, tensor.Vector(5, 6), checkpoint.New())
	assert.Equal(t, []float64{5, 6}, gradOf(t, g, a).Data())
	assert.Equal(t, []float64{5, 6}, gradOf(t, g, b).Data())
}

func TestAddStep_SameInputTwice(t *testing.T) {
	x := variable(1)
	out := output(x.Value.Add(x.Value), x, x)
	g := run(t, NewAdd(out.Node, x.Node, x.Node), out.Node, tensor.Vector(1), checkpoint.New())
	assert.Equal(t, []float64{2}, gradOf(t, g, x).Data())
}

func TestSubStep_UntrackedOperand(t *testing.T) {
	a, c := variable(1, 2), constant(3, 4)
	out := output(a.Value.Sub(c.Value), a, c)
	s := NewSub(out.Node, a.Node, c.Node)
	assert.Equal(t, []graph.NodeID{a.Node.ID}, s.Parents())

	g := run(t, s, out.Node, tensor.Vector(1, 1), checkpoint.New())
	assert.Equal(t, []float64{1, 1}, gradOf(t, g, a).Data())
	_, ok := g.Get(c.Node.ID)
	assert.False(t, ok, "constants receive no gradient")
}

func TestSubStep(t *testing.T) {
	a, b := variable(1), variable(2)
	out := output(a.Value.Sub(b.Value), a, b)
	g := run(t, NewSub(out.Node, a.Node, b.Node), out.Node, tensor.Vector(3), checkpoint.New())
	assert.Equal(t, []float64{3}, gradOf(t, g, a).Data())
	assert.Equal(t, []float64{-3}, gradOf(t, g, b).Data())
}

func TestNegStep(t *testing.T) {
	x := variable(1, -2)
	out := output(x.Value.Neg(), x)
	g := run(t, NewNeg(out.Node, x.Node), out.Node, tensor.Vector(1, 2), checkpoint.New())
	assert.Equal(t, []float64{-1, -2}, gradOf(t, g, x).Data())
}

func TestMulStep(t *testing.T) {
	a, b := variable(2, 3), variable(4, 5)
	out := output(a.Value.Mul(b.Value), a, b)
	c := checkpoint.New()
	s := NewMul(out.Node, a, b, States{Checkpointer: c})
	assert.Equal(t, 2, c.Len())

	g := run(t, s, out.Node, tensor.Vector(1, 2), c)
	assert.Equal(t, []float64{4, 10}, gradOf(t, g, a).Data())
	assert.Equal(t, []float64{2, 6}, gradOf(t, g, b).Data())
}

func TestMulStep_OnlyNeededStateSaved(t *testing.T) {
	a, k := variable(2, 3), constant(10, 100)
	out := output(a.Value.Mul(k.Value), a, k)
	c := checkpoint.New()
	s := NewMul(out.Node, a, k, States{Checkpointer: c})
	assert.Equal(t, 1, c.Len(), "only the constant is needed, for a's gradient")

	g := run(t, s, out.Node, tensor.Vector(1, 1), c)
	assert.Equal(t, []float64{10, 100}, gradOf(t, g, a).Data())
}

func TestMulStep_Square(t *testing.T) {
	x := variable(3)
	out := output(x.Value.Mul(x.Value), x, x)
	c := checkpoint.New()
	g := run(t, NewMul(out.Node, x, x, States{Checkpointer: c}), out.Node, tensor.Vector(1), c)
	assert.Equal(t, []float64{6}, gradOf(t, g, x).Data())
}

func TestDivStep(t *testing.T) {
	a, b := variable(6), variable(2)
	out := output(a.Value.Div(b.Value), a, b)
	c := checkpoint.New()
	g := run(t, NewDiv(out.Node, a, b, States{Checkpointer: c}), out.Node, tensor.Vector(1), c)
	assert.InDelta(t, 0.5, gradOf(t, g, a).Item(), tol)
	assert.InDelta(t, -1.5, gradOf(t, g, b).Item(), tol)
}

func TestDivStep_ConstantNumerator(t *testing.T) {
	k, b := constant(1), variable(4)
	out := output(k.Value.Div(b.Value), k, b)
	c := checkpoint.New()
	g := run(t, NewDiv(out.Node, k, b, States{Checkpointer: c}), out.Node, tensor.Vector(1), c)
	assert.InDelta(t, -1.0/16, gradOf(t, g, b).Item(), tol)
}

func TestUnarySteps(t *testing.T) {
	xs := []float64{-1, 0.5, 2}
	tests := []struct {
		name    string
		forward func(*tensor.Tensor) *tensor.Tensor
		build   func(out, x Input, st States) graph.Step
		deriv   func(x float64) float64
	}{
		{
			name:    "exp",
			forward: (*tensor.Tensor).Exp,
			build:   func(out, x Input, st States) graph.Step { return NewExp(out, x, st) },
			deriv:   math.Exp,
		},
		{
			name:    "sigmoid",
			forward: (*tensor.Tensor).Sigmoid,
			build:   func(out, x Input, st States) graph.Step { return NewSigmoid(out, x, st) },
			deriv: func(x float64) float64 {
				s := 1 / (1 + math.Exp(-x))
				return s * (1 - s)
			},
		},
		{
			name:    "tanh",
			forward: (*tensor.Tensor).Tanh,
			build:   func(out, x Input, st States) graph.Step { return NewTanh(out, x, st) },
			deriv: func(x float64) float64 {
				th := math.Tanh(x)
				return 1 - th*th
			},
		},
		{
			name:    "relu",
			forward: (*tensor.Tensor).ReLU,
			build:   func(out, x Input, st States) graph.Step { return NewReLU(out, x, st) },
			deriv: func(x float64) float64 {
				if x > 0 {
					return 1
				}
				return 0
			},
		},
	}

	for _, strategy := range []checkpoint.Strategy{checkpoint.MemoryBound, checkpoint.ComputeBound} {
		for _, tt := range tests {
			t.Run(tt.name+"/"+strategy.String(), func(t *testing.T) {
				x := variable(xs...)
				out := output(tt.forward(x.Value), x)
				c := checkpoint.New()
				s := tt.build(out, x, States{Checkpointer: c, Strategy: strategy})

				g := run(t, s, out.Node, tensor.Ones(tensor.Shape{len(xs)}), c)
				got := gradOf(t, g, x)
				for i, v := range xs {
					assert.InDelta(t, tt.deriv(v), got.At(i), tol, "x=%g", v)
				}
			})
		}
	}
}

func TestLogStep(t *testing.T) {
	x := variable(0.5, 4)
	out := output(x.Value.Log(), x)
	c := checkpoint.New()
	g := run(t, NewLog(out, x, States{Checkpointer: c}), out.Node, tensor.Vector(1, 2), c)
	assert.True(t, gradOf(t, g, x).AllClose(tensor.Vector(2, 0.5), tol))
}

func TestSumStep(t *testing.T) {
	x := Input{Node: graph.NewLeaf(graph.Grad, graph.DefaultStream), Value: tensor.Ones(tensor.Shape{2, 3})}
	out := output(x.Value.Sum(), x)
	g := run(t, NewSum(out.Node, x), out.Node, tensor.Scalar(7), checkpoint.New())
	assert.True(t, gradOf(t, g, x).Equal(tensor.Full(tensor.Shape{2, 3}, 7)))
}

func TestStep_ParentStreams(t *testing.T) {
	s1, s2 := graph.NewStreamID(), graph.NewStreamID()
	a := graph.NewLeaf(graph.Grad, s1)
	b := graph.NewLeaf(graph.Grad, s2)
	out := graph.NewNode(s2, a, b)
	s := NewAdd(out, a, b)
	assert.Equal(t, []graph.StreamID{s1, s2}, s.ParentStreams())
}
