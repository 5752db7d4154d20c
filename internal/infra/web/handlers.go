package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/model"
	"interpretation-broker/internal/infra/logging"
	red "interpretation-broker/internal/infra/redis"
)

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// queryToPayload converts query parameters into an extra-payload map,
// collapsing single-valued keys and keeping repeated keys as lists.
func queryToPayload(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for key, values := range q {
		if len(values) == 1 {
			out[key] = values[0]
		} else {
			out[key] = values
		}
	}
	return out
}

// handleInitiate creates the job, records its callback association and hands
// the super-backend call to the worker pool. The response carries the job id
// immediately; the compute call's own latency and failures never block or
// fail this request.
func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil || !user.Approved {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made, incorrect user auth / approval"})
		return
	}

	if s.limiter != nil {
		key := red.UserRequestKey(user.ID, "interpretations")
		allowed, err := s.limiter.Allow(r.Context(), key, 60, requestWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !allowed {
			writeJSON(w, http.StatusTooManyRequests, statusResponse{Status: "Too many requests"})
			return
		}
	}

	extraPayload := queryToPayload(r.URL.Query())
	callbackName, _ := extraPayload["callback"].(string)
	delete(extraPayload, "callback")
	delete(extraPayload, "job_id")

	jobID, err := s.jobUC.Begin(r.Context(), callbackName, extraPayload)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCallback) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Invalid callback name"})
			return
		}
		s.log.Error().Err(err).Msg("job begin failed")
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made"})
		return
	}

	// User attributes ride along so the super-backend can scope its answer;
	// they win over any caller-supplied duplicates.
	params := make(map[string]any, len(extraPayload)+4)
	for k, v := range extraPayload {
		params[k] = v
	}
	params["user_email"] = user.Email
	params["user_role"] = user.Role
	params["user_group_tags"] = user.GroupTags
	params["user_interest_tags"] = user.InterestTags

	logger := s.log.With().Str("job_id", jobID).Logger()
	if err := s.pool.Submit(func(ctx context.Context) error {
		ack, err := s.compute.Interpret(ctx, jobID, params)
		if err != nil {
			return err
		}
		logger.Info().Str("ack", ack).Msg("super-backend acknowledged job")
		return nil
	}); err != nil {
		// The job record exists either way; the client learns about a dead
		// compute call only through its own polling timeout.
		logger.Warn().Err(err).Msg("could not submit compute call")
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "Request made", "job_id": jobID})
}

// handleCallback accepts the super-backend's asynchronous result report.
// Every failure in this path is caught here and flattened to a 400 with a
// status string; details go to the log only.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobID := q.Get("job_id")
	userEmail := q.Get("user_email")
	ctx := logging.WithJobID(r.Context(), jobID)
	logger := logging.With(ctx, s.log)

	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn().Err(err).Msg("callback body unreadable")
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Response processing failed"})
		return
	}

	params := make(map[string]any, len(q))
	for key, values := range q {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if err := s.jobUC.Deliver(ctx, jobID, userEmail, params, body); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownJob):
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Invalid request ID: " + jobID})
		case errors.Is(err, domain.ErrNoCallbackRegistered):
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "No callback to process response"})
		default:
			logger.Error().Err(err).Msg("callback delivery failed")
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Response processing failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "Response processed"})
}

// handlePoll reports a job's current state to the client.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	ctx := logging.WithJobID(r.Context(), jobID)
	logger := logging.With(ctx, s.log)

	res, err := s.jobUC.Poll(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownJob):
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Invalid request ID: " + jobID})
		case errors.Is(err, domain.ErrNoCallbackRegistered):
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "No callback to process response"})
		case errors.Is(err, domain.ErrTransformFailed):
			logger.Warn().Err(err).Msg("transform failed")
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Response processing failed"})
		default:
			logger.Error().Err(err).Msg("poll failed")
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Response processing failed"})
		}
		return
	}

	if res.State == model.PollNoData {
		out := map[string]any{"status": "Data is none"}
		if res.Result != nil {
			// An open job polled again before new data arrived: surface the
			// cached transform output unchanged.
			out["result"] = res.Result
			out["stop"] = false
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	out := map[string]any{
		"status": "Response processed",
		"result": res.Result,
		"stop":   res.Stop,
	}
	if len(res.ExtraPayload) > 0 {
		out["extra_payload"] = res.ExtraPayload
	}
	writeJSON(w, http.StatusOK, out)
}
