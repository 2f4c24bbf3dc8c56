package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var ErrInvalidDesign = errors.New("response does not contain a design")

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type EvaluateRequest struct {
	DesignID int64  `json:"designId"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

func (r *EvaluateRequest) Validate() error {
	if r.DesignID == 0 {
		return ErrNoDesignID
	}
	return ValidateRating(r.Rating)
}

type EvaluateResponse struct {
	Success       bool    `json:"success"`
	Feedback      string  `json:"feedback"`
	NextIteration *Design `json:"nextIteration,omitempty"`
}

type IterateRequest struct {
	DesignID int64  `json:"designId"`
	Feedback string `json:"feedback,omitempty"`
}

func (r *IterateRequest) Validate() error {
	if r.DesignID == 0 {
		return ErrNoDesignID
	}
	return nil
}

type Asset struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type AssetsResponse struct {
	Assets []Asset `json:"assets"`
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

type StatusResponse struct {
	Status     JobStatus `json:"status"`
	PreviewURL string    `json:"preview_url,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// GeneratedDesign is a decoded generation response. PreviewURL is only set
// when the backend wrapped the design in an envelope that carried one.
type GeneratedDesign struct {
	Design     *Design
	PreviewURL string
}

// DecodeDesign accepts either a bare design object or an envelope carrying
// the design under spec_json (as an object or as a JSON-encoded string).
func DecodeDesign(body []byte) (*GeneratedDesign, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDesign)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidDesign)
	}

	spec := root
	if nested := root.Get("spec_json"); nested.Exists() {
		switch {
		case nested.IsObject():
			spec = nested
		case nested.Type == gjson.String && gjson.Valid(nested.String()):
			spec = gjson.Parse(nested.String())
		default:
			return nil, fmt.Errorf("%w: spec_json is not an object", ErrInvalidDesign)
		}
	}

	var design Design
	if err := json.Unmarshal([]byte(spec.Raw), &design); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDesign, err)
	}
	if design.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidDesign)
	}
	if design.ID == 0 {
		design.ID = root.Get("id").Int()
	}

	return &GeneratedDesign{
		Design:     &design,
		PreviewURL: root.Get("preview_url").String(),
	}, nil
}
