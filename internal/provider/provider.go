package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/manash/designgen/pkg/models"
)

var (
	ErrTransport       = errors.New("request could not be completed")
	ErrBadStatus       = errors.New("unexpected response status")
	ErrInvalidResponse = errors.New("invalid response from backend")
	ErrInvalidBaseURL  = errors.New("invalid backend URL")
)

// Backend is the design backend as seen by the client.
type Backend interface {
	Generate(ctx context.Context, prompt string) (*models.GeneratedDesign, error)
	Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluateResponse, error)
	Iterate(ctx context.Context, req *models.IterateRequest) (*models.Design, error)
	Assets(ctx context.Context) ([]models.Asset, error)
	Status(ctx context.Context, designID int64) (*models.StatusResponse, error)
}

type Config struct {
	BaseURL    string
	TimeoutSec int
	Verbose    bool
}

// StatusError reports a non-success HTTP status. It matches ErrBadStatus
// under errors.Is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s: %s", ErrBadStatus, e.Code, http.StatusText(e.Code), e.Message)
	}
	return fmt.Sprintf("%s: %d %s", ErrBadStatus, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}
