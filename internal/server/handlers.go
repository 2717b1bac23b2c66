package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
)

// anonymizeRequest is the wire form of a single anonymization request.
type anonymizeRequest struct {
	Text            string   `json:"text"`
	Languages       []string `json:"languages,omitempty"`
	Recognizers     []string `json:"recognizers,omitempty"`
	Profile         string   `json:"profile,omitempty"`
	CustomBlocklist []string `json:"custom_blocklist,omitempty"`
	CustomGrantlist []string `json:"custom_grantlist,omitempty"`
}

func (r *anonymizeRequest) toRequest() anonymizer.Request {
	return anonymizer.Request{
		Text:            r.Text,
		Languages:       r.Languages,
		Recognizers:     r.Recognizers,
		Profile:         r.Profile,
		CustomBlocklist: r.CustomBlocklist,
		CustomGrantlist: r.CustomGrantlist,
	}
}

type batchRequest struct {
	Items []anonymizeRequest `json:"items"`
}

type batchResponse struct {
	Results            []*anonymizer.Result `json:"results"`
	CombinedStatistics map[string]int       `json:"combined_statistics"`
}

type profilesResponse struct {
	Profiles []string `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAnonymize handles POST /api/anonymize requests
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if !s.decode(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := s.anonymizer.Anonymize(r.Context(), req.toRequest())
	if err != nil {
		s.metrics.RecordText("error", len(req.Text), time.Since(start))
		s.serverError(w, r, "Anonymization failed", err)
		return
	}
	s.metrics.RecordText("success", len(req.Text), time.Since(start))
	s.metrics.RecordSpans(result.Statistics)

	s.writeJSON(w, http.StatusOK, s.publicResult(result))
}

// handleBatch handles POST /api/anonymize/batch requests
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}

	results := make([]*anonymizer.Result, 0, len(req.Items))
	stats := make([]map[string]int, 0, len(req.Items))
	for _, item := range req.Items {
		start := time.Now()
		result, err := s.anonymizer.Anonymize(r.Context(), item.toRequest())
		if err != nil {
			s.metrics.RecordText("error", len(item.Text), time.Since(start))
			s.serverError(w, r, "Batch anonymization failed", err)
			return
		}
		s.metrics.RecordText("success", len(item.Text), time.Since(start))
		s.metrics.RecordSpans(result.Statistics)

		results = append(results, s.publicResult(result))
		stats = append(stats, result.Statistics)
	}

	s.writeJSON(w, http.StatusOK, batchResponse{
		Results:            results,
		CombinedStatistics: anonymizer.CombineStatistics(stats),
	})
}

// handleProfiles handles GET /api/profiles requests
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.provider.Profiles()
	if err != nil {
		s.serverError(w, r, "Listing profiles failed", err)
		return
	}
	if profiles == nil {
		profiles = []string{}
	}
	s.writeJSON(w, http.StatusOK, profilesResponse{Profiles: profiles})
}

// handleHealthz handles GET /healthz requests
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publicResult strips the details map outside debug mode. Statistics stay:
// they carry no text fragments, only counts.
func (s *Server) publicResult(result *anonymizer.Result) *anonymizer.Result {
	if s.settings.Debug {
		return result
	}
	return &anonymizer.Result{Text: result.Text, Statistics: result.Statistics}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.clientError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.clientError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Writing response failed", "error", err)
	}
}

func (s *Server) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID, _ := RequestIDFromContext(r.Context())
	s.logger.Warn("Rejecting request",
		"status", status,
		"reason", message,
		"request_id", requestID,
	)
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	requestID, _ := RequestIDFromContext(r.Context())
	s.logger.Error(message, "error", err, "request_id", requestID)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: message})
}
