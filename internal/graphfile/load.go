package graphfile

import (
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	"k8s.io/klog/v2"
)

// hclGraphFile is the top-level structure of a graph file for decoding.
type hclGraphFile struct {
	Root      string     `hcl:"root"`
	Variables []*hclLeaf `hcl:"variable,block"`
	Constants []*hclLeaf `hcl:"constant,block"`
	Ops       []*hclOp   `hcl:"op,block"`
}

type hclLeaf struct {
	Name      string         `hcl:"name,label"`
	Value     hcl.Expression `hcl:"value"`
	Shape     []int          `hcl:"shape,optional"`
	Stream    string         `hcl:"stream,optional"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

type hclOp struct {
	Name      string    `hcl:"name,label"`
	Kind      string    `hcl:"kind"`
	Inputs    []string  `hcl:"inputs"`
	Stream    string    `hcl:"stream,optional"`
	DeclRange hcl.Range `hcl:",def_range"`
}

// Load parses and validates the graph file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse graph file %s", path)
	}
	return decode(hclFile, path)
}

// Parse parses and validates a graph description held in memory. filename is
// only used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse graph file %s", filename)
	}
	return decode(hclFile, filename)
}

func decode(hclFile *hcl.File, filename string) (*File, error) {
	var parsed hclGraphFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode graph file %s", filename)
	}

	f := &File{Root: parsed.Root}
	rootSchema := &hcl.BodySchema{Attributes: []hcl.AttributeSchema{{Name: "root"}}}
	if content, _, _ := hclFile.Body.PartialContent(rootSchema); content != nil {
		if attr := content.Attributes["root"]; attr != nil {
			f.RootRange = attr.Range
		}
	}
	for _, group := range []struct {
		blocks   []*hclLeaf
		variable bool
	}{{parsed.Variables, true}, {parsed.Constants, false}} {
		for _, block := range group.blocks {
			value, err := leafValue(block)
			if err != nil {
				return nil, err
			}
			f.Leaves = append(f.Leaves, &Leaf{
				Name:     block.Name,
				Variable: group.variable,
				Value:    value,
				Stream:   block.Stream,
				Range:    block.DeclRange,
			})
		}
	}
	for _, block := range parsed.Ops {
		f.Ops = append(f.Ops, &Op{
			Name:   block.Name,
			Kind:   block.Kind,
			Inputs: block.Inputs,
			Stream: block.Stream,
			Range:  block.DeclRange,
		})
	}

	if err := f.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid graph file %s", filename)
	}
	klog.V(1).Infof("graphfile: loaded %s: %d leaves, %d ops, root %q", filename, len(f.Leaves), len(f.Ops), f.Root)
	return f, nil
}

// leafValue evaluates the value expression of a leaf: a number or a list of
// numbers, optionally reshaped by the shape attribute.
func leafValue(block *hclLeaf) (*tensor.Tensor, error) {
	v, diags := block.Value.Value(nil)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "%s: evaluating value of %q", block.DeclRange, block.Name)
	}

	var data []float64
	if v.Type() == cty.Number {
		var x float64
		if err := gocty.FromCtyValue(v, &x); err != nil {
			return nil, errors.Wrapf(err, "%s: value of %q", block.DeclRange, block.Name)
		}
		data = []float64{x}
		if block.Shape == nil {
			return tensor.Scalar(x), nil
		}
	} else {
		list, err := convert.Convert(v, cty.List(cty.Number))
		if err != nil {
			return nil, errors.Wrapf(err, "%s: value of %q must be a number or a list of numbers", block.DeclRange, block.Name)
		}
		if err := gocty.FromCtyValue(list, &data); err != nil {
			return nil, errors.Wrapf(err, "%s: value of %q", block.DeclRange, block.Name)
		}
	}

	shape := tensor.Shape{len(data)}
	if block.Shape != nil {
		shape = tensor.Shape(block.Shape)
	}
	value, err := tensor.FromSlice(data, shape)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: leaf %q", block.DeclRange, block.Name)
	}
	return value, nil
}
