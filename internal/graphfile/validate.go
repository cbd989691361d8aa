package graphfile

import (
	"slices"
	"strings"

	"github.com/born-ml/autograph/internal/tensor"
	"github.com/pkg/errors"
)

// Kinds returns the supported op kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(opKinds))
	for k := range opKinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Validate checks names, op kinds, arities, input references and shapes.
// Op inputs may only reference leaves and ops declared before them.
func (f *File) Validate() error {
	shapes := make(map[string]tensor.Shape, len(f.Leaves)+len(f.Ops))
	for _, leaf := range f.Leaves {
		if _, dup := shapes[leaf.Name]; dup {
			return errors.Errorf("%s: %q is declared more than once", leaf.Range, leaf.Name)
		}
		shapes[leaf.Name] = leaf.Value.Shape()
	}

	for _, op := range f.Ops {
		if _, dup := shapes[op.Name]; dup {
			return errors.Errorf("%s: %q is declared more than once", op.Range, op.Name)
		}
		kind, found := opKinds[op.Kind]
		if !found {
			return errors.Errorf("%s: op %q has unknown kind %q (supported: %s)",
				op.Range, op.Name, op.Kind, strings.Join(Kinds(), ", "))
		}
		if len(op.Inputs) != kind.arity {
			return errors.Errorf("%s: op %q of kind %q takes %d inputs, got %d",
				op.Range, op.Name, op.Kind, kind.arity, len(op.Inputs))
		}
		in := make([]tensor.Shape, len(op.Inputs))
		for i, name := range op.Inputs {
			s, found := shapes[name]
			if !found {
				return errors.Errorf("%s: op %q references %q, which is not declared before it",
					op.Range, op.Name, name)
			}
			in[i] = s
		}
		out, ok := kind.shape(in)
		if !ok {
			return errors.Errorf("%s: op %q: incompatible input shapes %v", op.Range, op.Name, in)
		}
		shapes[op.Name] = out
	}

	if f.Root == "" {
		return errors.New("root is empty")
	}
	if _, found := shapes[f.Root]; !found {
		return errors.Errorf("%s: root %q is not declared", f.RootRange, f.Root)
	}
	return nil
}
