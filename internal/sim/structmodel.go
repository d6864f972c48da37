package sim

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/tbrun/internal/ports"
)

// Evaluator is implemented by struct models. Eval must settle the output
// fields from the input fields and any internal state.
type Evaluator interface {
	Eval()
}

// StructDesign is a Design backed by a tagged Go struct.
type StructDesign struct {
	name   string
	newFn  func() Evaluator
	typ    reflect.Type
	ports  []ports.PortInfo
	fields map[string][]int
}

// NewStructDesign inspects the struct returned by newFn and derives the port
// list from its `sim` field tags. newFn must return a pointer to a struct and
// is called once here and once per New.
func NewStructDesign(name string, newFn func() Evaluator) (*StructDesign, error) {
	sample := newFn()
	if sample == nil {
		return nil, fmt.Errorf("design %s: constructor returned nil", name)
	}
	typ := reflect.TypeOf(sample)
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("design %s: unsupported type %s, want pointer to struct", name, typ)
	}
	if reflect.ValueOf(sample).IsNil() {
		return nil, fmt.Errorf("design %s: constructor returned a nil %s", name, typ)
	}
	typ = typ.Elem()

	d := &StructDesign{
		name:   name,
		newFn:  newFn,
		typ:    typ,
		fields: make(map[string][]int),
	}

	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("sim")
		if !ok {
			continue
		}
		p, err := parseFieldTag(f, tag)
		if err != nil {
			return nil, fmt.Errorf("design %s: %w", name, err)
		}
		if _, dup := d.fields[p.Name]; dup {
			return nil, &ports.Error{Code: ports.ErrCodeDuplicatePort, Port: p.Name, Message: "port declared more than once"}
		}
		d.fields[p.Name] = f.Index
		d.ports = append(d.ports, p)
	}
	if len(d.ports) == 0 {
		return nil, fmt.Errorf("design %s: no fields tagged with sim:\"in\" or sim:\"out\"", name)
	}
	return d, nil
}

func parseFieldTag(f reflect.StructField, tag string) (ports.PortInfo, error) {
	p := ports.PortInfo{Name: strings.ToLower(f.Name)}

	bits, ok := fieldBits(f.Type.Kind())
	if !ok {
		return p, fmt.Errorf("unsupported type %s for field %q", f.Type, f.Name)
	}
	if !f.IsExported() {
		return p, fmt.Errorf("field %q is not exported", f.Name)
	}
	p.Width = bits

	items := strings.Split(tag, ",")
	switch items[0] {
	case "in":
		p.IsInput = true
	case "out":
	default:
		return p, fmt.Errorf("unsupported tag %q for field %q", tag, f.Name)
	}
	for _, item := range items[1:] {
		item = strings.TrimSpace(item)
		switch {
		case item == "":
		case strings.HasPrefix(item, "width="):
			w, err := strconv.Atoi(strings.TrimPrefix(item, "width="))
			if err != nil || w < 1 || w > bits {
				return p, fmt.Errorf("invalid width %q for field %q (max %d)", item, f.Name, bits)
			}
			p.Width = w
		default:
			p.Name = item
		}
	}
	return p, nil
}

func fieldBits(k reflect.Kind) (int, bool) {
	switch k {
	case reflect.Bool:
		return 1, true
	case reflect.Uint8:
		return 8, true
	case reflect.Uint16:
		return 16, true
	case reflect.Uint32:
		return 32, true
	case reflect.Uint64, reflect.Uint:
		return 64, true
	}
	return 0, false
}

// Name implements Design.
func (d *StructDesign) Name() string { return d.name }

// Ports implements Design.
func (d *StructDesign) Ports() []ports.PortInfo {
	out := make([]ports.PortInfo, len(d.ports))
	copy(out, d.ports)
	return out
}

// Layout implements Design. Every tagged field gets an extractor.
func (d *StructDesign) Layout() Layout {
	l := make(Layout, len(d.fields))
	for name, idx := range d.fields {
		l[name] = d.extractor(name, idx)
	}
	return l
}

func (d *StructDesign) extractor(name string, idx []int) Extractor {
	return func(m Model) (Cell, error) {
		sm, ok := m.(*structModel)
		if !ok || sm.design != d {
			return nil, fmt.Errorf("signal %s: model is not an instance of %s", name, d.name)
		}
		if sm.closed {
			return nil, ErrClosed
		}
		return fieldCell{sm.v.Elem().FieldByIndex(idx)}, nil
	}
}

// New implements Design.
func (d *StructDesign) New() (Model, error) {
	ev := d.newFn()
	if ev == nil {
		return nil, fmt.Errorf("design %s: constructor returned nil", d.name)
	}
	v := reflect.ValueOf(ev)
	if v.Kind() != reflect.Ptr || v.Type().Elem() != d.typ {
		return nil, fmt.Errorf("design %s: constructor returned %s, want *%s", d.name, v.Type(), d.typ)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("design %s: constructor returned a nil %s", d.name, v.Type())
	}
	return &structModel{design: d, ev: ev, v: v}, nil
}

type structModel struct {
	design *StructDesign
	ev     Evaluator
	v      reflect.Value
	closed bool
}

func (m *structModel) Evaluate() error {
	if m.closed {
		return ErrClosed
	}
	m.ev.Eval()
	return nil
}

func (m *structModel) Close() error {
	m.closed = true
	m.ev = nil
	return nil
}

// Instance returns the struct behind a model created by a StructDesign, or
// nil for any other model.
func Instance(m Model) Evaluator {
	if sm, ok := m.(*structModel); ok {
		return sm.ev
	}
	return nil
}

type fieldCell struct {
	v reflect.Value
}

func (c fieldCell) Load() uint64 {
	if c.v.Kind() == reflect.Bool {
		if c.v.Bool() {
			return 1
		}
		return 0
	}
	return c.v.Uint()
}

func (c fieldCell) Store(x uint64) {
	if c.v.Kind() == reflect.Bool {
		c.v.SetBool(x&1 != 0)
		return
	}
	c.v.SetUint(x)
}
