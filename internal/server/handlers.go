package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
	"github.com/manash/designgen/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := models.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("received prompt",
		"prompt", req.Prompt,
		"category", s.selector.Classify(req.Prompt),
	)

	if err := s.latency.Wait(r.Context()); err != nil {
		s.logger.Debug("client went away during generation", "error", err)
		return
	}

	design, err := s.selector.Select(req.Prompt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.previews.Start(design.ID)

	writeJSON(w, http.StatusOK, design)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("received evaluation",
		"design_id", req.DesignID,
		"rating", req.Rating,
		"feedback", req.Feedback,
	)

	writeJSON(w, http.StatusOK, &models.EvaluateResponse{
		Success:       true,
		Feedback:      fmt.Sprintf("Thank you for rating %d stars!", req.Rating),
		NextIteration: s.selector.NextIteration(),
	})
}

func (s *Server) handleIterate(w http.ResponseWriter, r *http.Request) {
	var req models.IterateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("received iteration request",
		"design_id", req.DesignID,
		"feedback", req.Feedback,
	)

	writeJSON(w, http.StatusOK, s.selector.Iteration(req.Feedback))
}

func (s *Server) handleStubAssets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &models.AssetsResponse{Assets: fixture.StubAssets()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid design id")
		return
	}

	status, err := s.previews.Status(id)
	if errors.Is(err, preview.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &models.ErrorResponse{Error: msg})
}
