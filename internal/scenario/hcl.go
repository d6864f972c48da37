package scenario

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type hclFile struct {
	Discipline string        `hcl:"discipline,optional"`
	Scenarios  []hclScenario `hcl:"scenario,block"`
}

type hclScenario struct {
	Name       string    `hcl:"name,label"`
	Discipline string    `hcl:"discipline,optional"`
	Steps      []hclStep `hcl:"step,block"`
}

type hclStep struct {
	Inputs cty.Value `hcl:"inputs,optional"`
	Expect cty.Value `hcl:"expect,optional"`
}

// ParseHCL decodes an HCL scenario file:
//
//	discipline = "SEQ"
//	scenario "reset" {
//	  step {
//	    inputs = { clk = 0, rst = 1 }
//	    expect = { count = 0 }
//	  }
//	}
func ParseHCL(data []byte, filename string, def Discipline) ([]*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var f hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	fileDisc, err := ParseDiscipline(f.Discipline, def)
	if err != nil {
		return nil, err
	}

	out := make([]*Scenario, 0, len(f.Scenarios))
	for _, hs := range f.Scenarios {
		disc, err := ParseDiscipline(hs.Discipline, fileDisc)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", hs.Name, err)
		}
		sc := &Scenario{Name: hs.Name, Discipline: disc, Steps: make([]Step, 0, len(hs.Steps))}
		for j, st := range hs.Steps {
			in, err := ctyVector(st.Inputs)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: step %d: inputs: %w", hs.Name, j, err)
			}
			exp, err := ctyVector(st.Expect)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: step %d: expect: %w", hs.Name, j, err)
			}
			sc.Steps = append(sc.Steps, Step{Inputs: in, Expected: exp})
		}
		out = append(out, sc)
	}
	return out, nil
}

func ctyVector(v cty.Value) (map[string]uint64, error) {
	out := make(map[string]uint64)
	if v.IsNull() {
		return out, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("want an object of signal values, got %s", ty.FriendlyName())
	}
	it := v.ElementIterator()
	for it.Next() {
		k, ev := it.Element()
		name := k.AsString()
		val, dc, err := ctyValue(ev)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		if !dc {
			out[name] = val
		}
	}
	return out, nil
}

func ctyValue(v cty.Value) (uint64, bool, error) {
	if v.IsNull() || !v.IsKnown() {
		return 0, false, fmt.Errorf("missing value")
	}
	switch ty := v.Type(); {
	case ty.Equals(cty.String):
		return ParseValue(v.AsString())
	case ty.Equals(cty.Bool):
		if v.True() {
			return 1, false, nil
		}
		return 0, false, nil
	case ty.Equals(cty.Number):
		bf := v.AsBigFloat()
		if !bf.IsInt() || bf.Sign() < 0 {
			return 0, false, fmt.Errorf("value %s is not an unsigned integer", bf.Text('g', -1))
		}
		u, acc := bf.Uint64()
		if acc != big.Exact {
			return 0, false, fmt.Errorf("value %s exceeds 64 bits", bf.Text('g', -1))
		}
		return u, false, nil
	default:
		return 0, false, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
