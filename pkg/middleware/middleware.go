// Package middleware decorates lm.Model values with request and response
// transforms.
package middleware

import (
	"context"
	"slices"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

type GenerateFunc func(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error)

type StreamFunc func(ctx context.Context, opts *lm.CallOptions) (*lm.StreamResult, error)

// Middleware is a set of optional hooks around a model call.
// TransformParams rewrites the call options before the backend sees them.
// WrapGenerate and WrapStream decorate the respective call paths.
type Middleware struct {
	Name            string
	TransformParams func(ctx context.Context, opts lm.CallOptions) (lm.CallOptions, error)
	WrapGenerate    func(next GenerateFunc) GenerateFunc
	WrapStream      func(next StreamFunc) StreamFunc
}

// Wrap applies mws to model. The first middleware is the outermost: its
// TransformParams runs first and its wrappers see the final results.
func Wrap(model lm.Model, mws ...Middleware) lm.Model {
	if len(mws) == 0 {
		return model
	}

	w := &wrappedModel{
		model:    model,
		mws:      slices.Clone(mws),
		generate: model.Generate,
		stream:   model.Stream,
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].WrapGenerate != nil {
			w.generate = mws[i].WrapGenerate(w.generate)
		}
		if mws[i].WrapStream != nil {
			w.stream = mws[i].WrapStream(w.stream)
		}
	}
	return w
}

type wrappedModel struct {
	model    lm.Model
	mws      []Middleware
	generate GenerateFunc
	stream   StreamFunc
}

func (w *wrappedModel) Provider() string {
	return w.model.Provider()
}

func (w *wrappedModel) ModelID() string {
	return w.model.ModelID()
}

func (w *wrappedModel) Generate(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
	params, err := w.transform(ctx, opts)
	if err != nil {
		return nil, err
	}
	return w.generate(ctx, &params)
}

func (w *wrappedModel) Stream(ctx context.Context, opts *lm.CallOptions) (*lm.StreamResult, error) {
	params, err := w.transform(ctx, opts)
	if err != nil {
		return nil, err
	}
	return w.stream(ctx, &params)
}

func (w *wrappedModel) transform(ctx context.Context, opts *lm.CallOptions) (lm.CallOptions, error) {
	var params lm.CallOptions
	if opts != nil {
		params = opts.Clone()
	}
	for _, mw := range w.mws {
		if mw.TransformParams == nil {
			continue
		}
		next, err := mw.TransformParams(ctx, params)
		if err != nil {
			return lm.CallOptions{}, err
		}
		params = next
	}
	return params, nil
}
