package models

import (
	"errors"
	"testing"
)

const bareTable = `{
	"id": 1700000000000,
	"prompt": "dining table",
	"type": "table",
	"style": "dining",
	"material": "wood",
	"dimensions": {"width": 120, "height": 75, "depth": 80},
	"components": [{"name": "tabletop", "shape": "rectangle", "position": [0, 35, 0], "size": [120, 5, 80]}],
	"colors": {"primary": "#8B4513", "secondary": "#A0522D"}
}`

func TestDecodeDesign_Bare(t *testing.T) {
	got, err := DecodeDesign([]byte(bareTable))
	if err != nil {
		t.Fatalf("DecodeDesign() error = %v", err)
	}

	d := got.Design
	if d.Type != CategoryTable {
		t.Errorf("Type = %v, want table", d.Type)
	}
	if d.ID != 1700000000000 {
		t.Errorf("ID = %d, want 1700000000000", d.ID)
	}
	if d.Dimensions != (Dimensions{Width: 120, Height: 75, Depth: 80}) {
		t.Errorf("Dimensions = %+v", d.Dimensions)
	}
	if len(d.Components) != 1 || d.Components[0].Size != (Vec3{120, 5, 80}) {
		t.Errorf("Components = %+v", d.Components)
	}
	if got.PreviewURL != "" {
		t.Errorf("PreviewURL = %q, want empty", got.PreviewURL)
	}
}

func TestDecodeDesign_Envelope(t *testing.T) {
	body := `{"spec_json": ` + bareTable + `, "preview_url": "/previews/1.glb"}`

	got, err := DecodeDesign([]byte(body))
	if err != nil {
		t.Fatalf("DecodeDesign() error = %v", err)
	}
	if got.Design.Type != CategoryTable {
		t.Errorf("Type = %v, want table", got.Design.Type)
	}
	if got.PreviewURL != "/previews/1.glb" {
		t.Errorf("PreviewURL = %q", got.PreviewURL)
	}
}

func TestDecodeDesign_EnvelopeWithEncodedString(t *testing.T) {
	body := `{"spec_json": "{\"type\":\"lamp\",\"material\":\"metal\"}"}`

	got, err := DecodeDesign([]byte(body))
	if err != nil {
		t.Fatalf("DecodeDesign() error = %v", err)
	}
	if got.Design.Type != CategoryLamp || got.Design.Material != "metal" {
		t.Errorf("Design = %+v", got.Design)
	}
}

func TestDecodeDesign_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"type":`},
		{"array", `[1,2,3]`},
		{"missing type", `{"style": "modern"}`},
		{"spec_json number", `{"spec_json": 42}`},
		{"spec_json bad string", `{"spec_json": "not json"}`},
		{"wrong field type", `{"type": "chair", "dimensions": "big"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDesign([]byte(tt.body))
			if !errors.Is(err, ErrInvalidDesign) {
				t.Errorf("DecodeDesign() error = %v, want ErrInvalidDesign", err)
			}
		})
	}
}

func TestEvaluateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     EvaluateRequest
		wantErr error
	}{
		{"valid", EvaluateRequest{DesignID: 1, Rating: 4}, nil},
		{"missing id", EvaluateRequest{Rating: 4}, ErrNoDesignID},
		{"rating too low", EvaluateRequest{DesignID: 1, Rating: 0}, ErrInvalidRating},
		{"rating too high", EvaluateRequest{DesignID: 1, Rating: 6}, ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIterateRequest_Validate(t *testing.T) {
	if err := (&IterateRequest{DesignID: 7}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&IterateRequest{}).Validate(); !errors.Is(err, ErrNoDesignID) {
		t.Errorf("Validate() error = %v, want ErrNoDesignID", err)
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	if JobPending.IsTerminal() {
		t.Error("pending should not be terminal")
	}
	if !JobCompleted.IsTerminal() || !JobFailed.IsTerminal() {
		t.Error("completed and failed should be terminal")
	}
}
