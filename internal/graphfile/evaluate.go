package graphfile

import (
	"github.com/born-ml/autograph/internal/autodiff"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Result is the outcome of evaluating a File.
type Result struct {
	// Root is the forward value of the root.
	Root *tensor.Tensor
	// Gradients holds the gradient of the root with respect to each variable.
	// Variables the root does not depend on get zeros.
	Gradients map[string]*tensor.Tensor
	// Visited lists the names of the nodes the backward traversal reported, in order.
	Visited []string
	// Streams lists the stream names in order of first use; "" is the default stream.
	Streams []string
	Stats   autodiff.PassStats
}

// Evaluate runs the forward pass described by f and the backward pass from its root.
//
// With autodiff.WithTape the forward pass records on the given tape, which is
// left recording only if it was before. Evaluate replaces the tape's visit
// hook for the duration of its backward pass and removes it afterwards.
func Evaluate(f *File, opts ...autodiff.Option) (*Result, error) {
	base := autodiff.New(opts...)
	tape := base.Tape()
	wasRecording := tape.IsRecording()
	tape.StartRecording()

	res := &Result{Gradients: make(map[string]*tensor.Tensor)}
	backends := map[string]*autodiff.Backend{"": base}
	res.Streams = append(res.Streams, "")
	backendFor := func(stream string) *autodiff.Backend {
		b, found := backends[stream]
		if !found {
			b = base.Fork()
			backends[stream] = b
			res.Streams = append(res.Streams, stream)
			klog.V(2).Infof("graphfile: stream %q is %s", stream, b.Stream())
		}
		return b
	}

	tensors := make(map[string]*autodiff.Tensor, len(f.Leaves)+len(f.Ops))
	names := make(map[graph.NodeID]string, len(f.Leaves)+len(f.Ops))
	for _, leaf := range f.Leaves {
		b := backendFor(leaf.Stream)
		t := b.Constant(leaf.Value)
		if leaf.Variable {
			t = b.Variable(leaf.Value)
		}
		tensors[leaf.Name] = t
		names[t.Node.ID] = leaf.Name
	}

	err := exceptions.TryCatch[error](func() {
		for _, op := range f.Ops {
			in := make([]*autodiff.Tensor, len(op.Inputs))
			for i, name := range op.Inputs {
				in[i] = tensors[name]
			}
			t := opKinds[op.Kind].apply(backendFor(op.Stream), in)
			tensors[op.Name] = t
			names[t.Node.ID] = op.Name
		}
	})
	if !wasRecording {
		tape.StopRecording()
	}
	if err != nil {
		return nil, errors.WithMessage(err, "graphfile: forward pass failed")
	}

	root := tensors[f.Root]
	res.Root = root.Value
	if root.Requirement().IsNone() {
		klog.Warningf("graphfile: root %q does not depend on any variable, all gradients are zero", f.Root)
		for _, leaf := range f.Leaves {
			if leaf.Variable {
				res.Gradients[leaf.Name] = tensor.Zeros(leaf.Value.Shape())
			}
		}
		return res, nil
	}

	tape.SetVisitHook(func(id graph.NodeID, _ int) {
		res.Visited = append(res.Visited, names[id])
	})
	defer tape.SetVisitHook(nil)
	g, err := base.TryBackward(root)
	if err != nil {
		return nil, errors.WithMessagef(err, "graphfile: backward from %q", f.Root)
	}
	res.Stats = tape.LastPass()

	for _, leaf := range f.Leaves {
		if !leaf.Variable {
			continue
		}
		grad, found := autodiff.Grad(g, tensors[leaf.Name])
		if !found {
			grad = tensor.Zeros(leaf.Value.Shape())
		}
		res.Gradients[leaf.Name] = grad
	}
	return res, nil
}
