package compare

import (
	"errors"
	"fmt"

	"techrace/internal/series"
)

// Renderer turns a comparison into one output artifact. Render must not have
// side effects; Emit writes what Render produced.
type Renderer interface {
	Name() string
	Render(a, b *series.YearSeries, res Result) ([]byte, error)
	Emit(data []byte) error
}

// Discarder is implemented by renderers whose Emit leaves a file behind.
// Discard removes it and is a no-op when nothing was written.
type Discarder interface {
	Discard() error
}

// Run computes the comparison and drives every renderer. All artifacts are
// rendered before the first one is emitted, so a failing metric or render
// leaves no output behind. If an Emit fails, the artifacts already written
// are discarded.
func Run(a, b *series.YearSeries, c Comparison, renderers ...Renderer) (Result, error) {
	res, err := Compute(a, b, c)
	if err != nil {
		return Result{}, err
	}

	artifacts := make([][]byte, len(renderers))
	for i, r := range renderers {
		data, err := r.Render(a, b, res)
		if err != nil {
			return Result{}, fmt.Errorf("render %s: %w", r.Name(), err)
		}
		artifacts[i] = data
	}

	for i, r := range renderers {
		if err := r.Emit(artifacts[i]); err != nil {
			err = fmt.Errorf("write %s: %w", r.Name(), err)
			return Result{}, errors.Join(err, discard(renderers[:i+1]))
		}
	}

	return res, nil
}

func discard(renderers []Renderer) error {
	var errs []error
	for _, r := range renderers {
		if d, ok := r.(Discarder); ok {
			if err := d.Discard(); err != nil {
				errs = append(errs, fmt.Errorf("discard %s: %w", r.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
