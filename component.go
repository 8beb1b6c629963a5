package hummingbird

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Component[P] is a Definition whose props decode into P.
//
// Props are decoded with encoding/json, so P declares its schema through
// struct fields and tags. A props marker that does not fit P (bad JSON, a
// string where a number is expected, a failed Validate) produces a
// *PropsError and only that element is skipped.
//
//	type CounterProps struct {
//	    Start int `json:"start"`
//	}
//
//	var Counter = hummingbird.Define("Counter",
//	    func(ctx context.Context, el *hummingbird.Element, p CounterProps) error {
//	        ...
//	    })
type Component[P any] struct {
	name   string
	strict bool
	init   func(ctx context.Context, el *Element, props P) error
}

// Define creates a typed component definition.
func Define[P any](name string, init func(ctx context.Context, el *Element, props P) error) *Component[P] {
	return &Component[P]{name: name, init: init}
}

// Strict rejects props carrying fields P does not declare.
func (c *Component[P]) Strict() *Component[P] {
	c.strict = true
	return c
}

// Name returns the component's registry key.
func (c *Component[P]) Name() string {
	return c.name
}

// IsStrict returns whether unknown props fields are rejected.
func (c *Component[P]) IsStrict() bool {
	return c.strict
}

// Decode parses a props marker into P.
func (c *Component[P]) Decode(raw json.RawMessage) (P, error) {
	var props P
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = emptyProps
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if c.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&props); err != nil {
		return props, &PropsError{Raw: string(raw), Err: err}
	}
	if dec.More() {
		return props, &PropsError{Raw: string(raw), Err: errors.New("trailing data after props object")}
	}
	if v, ok := any(&props).(Validator); ok {
		if err := v.Validate(); err != nil {
			return props, &PropsError{Raw: string(raw), Err: err}
		}
	}
	return props, nil
}

// Mount decodes props and runs the initializer.
func (c *Component[P]) Mount(ctx context.Context, el *Element, raw json.RawMessage) error {
	props, err := c.Decode(raw)
	if err != nil {
		return err
	}
	return c.init(ctx, el, props)
}

// funcDefinition adapts an InitFunc.
type funcDefinition struct {
	name string
	init InitFunc
}

// Func wraps an untyped initializer as a Definition.
func Func(name string, init InitFunc) Definition {
	return &funcDefinition{name: name, init: init}
}

func (f *funcDefinition) Name() string { return f.name }

func (f *funcDefinition) Mount(ctx context.Context, el *Element, raw json.RawMessage) error {
	props, err := decodeProps(raw)
	if err != nil {
		return err
	}
	return f.init(ctx, el, props)
}

// mountSafely runs def.Mount, turning a panicking initializer into an error
// so it cannot take sibling elements down with it.
func mountSafely(ctx context.Context, def Definition, el *Element, raw json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMountFailed, r)
		}
	}()
	return def.Mount(ctx, el, raw)
}
