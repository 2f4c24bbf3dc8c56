// Package local serves designs in-process from the fixture catalog, without
// a running server.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/pkg/models"
)

type Backend struct {
	selector *fixture.Selector
	previews *preview.Tracker
	latency  fixture.Latency
}

func New(selector *fixture.Selector, previews *preview.Tracker, latency fixture.Latency) *Backend {
	return &Backend{
		selector: selector,
		previews: previews,
		latency:  latency,
	}
}

func (b *Backend) Generate(ctx context.Context, prompt string) (*models.GeneratedDesign, error) {
	if err := models.ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := b.latency.Wait(ctx); err != nil {
		return nil, err
	}

	design, err := b.selector.Select(prompt)
	if err != nil {
		return nil, err
	}
	b.previews.Start(design.ID)
	return &models.GeneratedDesign{Design: design}, nil
}

func (b *Backend) Evaluate(_ context.Context, req *models.EvaluateRequest) (*models.EvaluateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &models.EvaluateResponse{
		Success:       true,
		Feedback:      fmt.Sprintf("Thank you for rating %d stars!", req.Rating),
		NextIteration: b.selector.NextIteration(),
	}, nil
}

func (b *Backend) Iterate(_ context.Context, req *models.IterateRequest) (*models.Design, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return b.selector.Iteration(req.Feedback), nil
}

func (b *Backend) Assets(context.Context) ([]models.Asset, error) {
	return fixture.StubAssets(), nil
}

// Status mirrors the HTTP backend: an unknown job is a 404 StatusError.
func (b *Backend) Status(_ context.Context, designID int64) (*models.StatusResponse, error) {
	status, err := b.previews.Status(designID)
	if errors.Is(err, preview.ErrJobNotFound) {
		return nil, &provider.StatusError{Code: http.StatusNotFound, Message: err.Error()}
	}
	return status, err
}

var _ provider.Backend = (*Backend)(nil)
