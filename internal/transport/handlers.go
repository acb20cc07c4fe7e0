package transport

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/taxonomy"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// TaxonomyResponse lists the wizard vocabulary.
type TaxonomyResponse struct {
	Categories []taxonomy.Category `json:"categories"`
	BodyTypes  []string            `json:"body_types"`
	FuelTypes  []string            `json:"fuel_types"`
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TaxonomyResponse{
		Categories: taxonomy.Categories(),
		BodyTypes:  taxonomy.BodyTypes(),
		FuelTypes:  taxonomy.FuelOptions(),
	})
}

// RecommendRequest is the body of POST /api/recommendations.
type RecommendRequest struct {
	Budget       *int64   `json:"budget" validate:"omitempty,gte=0"`
	BodyType     string   `json:"body_type"`
	FuelType     string   `json:"fuel_type"`
	UsageTags    []string `json:"usage_tags"`
	PriorityTags []string `json:"priority_tags"`
	Limit        int      `json:"limit" validate:"gte=0"`
	// SessionID, when set, stores the returned vehicle ids on that session.
	SessionID string `json:"session_id"`
}

// RecommendResponse is the body of a successful recommendation.
type RecommendResponse struct {
	Vehicles []vehicle.RankedVehicle `json:"vehicles"`
	// Total counts every eligible vehicle before the limit was applied.
	Total   int              `json:"total"`
	Session *session.Session `json:"session,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	criteria := vehicle.Criteria{
		Budget:       req.Budget,
		BodyType:     req.BodyType,
		FuelType:     req.FuelType,
		UsageTags:    req.UsageTags,
		PriorityTags: req.PriorityTags,
	}
	ranked, err := s.services.Recommend.Recommend(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	shown := vehicle.Top(ranked, s.limit(req.Limit))
	ids := vehicle.IDs(shown)
	resp := RecommendResponse{Vehicles: shown, Total: len(ranked)}

	if req.SessionID != "" {
		sess, err := s.services.Sessions.Update(r.Context(), req.SessionID, session.UpdateRequest{
			Step:              "recommendation",
			Action:            session.ActionRecommend,
			RecommendedCarIDs: ids,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Session = sess
	}

	if err := s.services.Activity.RecordRecommendation(r.Context(), req.SessionID, criteria, ids); err != nil {
		s.logger.Warn("failed to record recommendation", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// limit resolves the effective list size of a recommendation response.
func (s *Server) limit(requested int) int {
	return recommend.EffectiveLimit(requested, s.opts.DefaultLimit, s.opts.MaxLimit)
}

// CreateSessionRequest is the optional body of POST /api/sessions.
type CreateSessionRequest struct {
	// SessionID resumes an existing session when it is known.
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	meta := session.ClientMetadata{
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}
	sess, created, err := s.services.Sessions.CreateOrGet(r.Context(), req.SessionID, meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		if err := s.services.Activity.RecordSessionStarted(r.Context(), sess.ID); err != nil {
			s.logger.Warn("failed to record session start", "session_id", sess.ID, "error", err)
		}
	}
	writeJSON(w, status, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.services.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// UpdateSessionRequest is the body of PUT /api/sessions/{id}. Absent or
// null fields keep their stored value; an empty list clears it.
type UpdateSessionRequest struct {
	Step              string   `json:"step" validate:"required"`
	Action            string   `json:"action" validate:"required"`
	UsageTags         []string `json:"usage_tags"`
	PriorityTags      []string `json:"priority_tags"`
	BodyType          *string  `json:"body_type"`
	FuelType          *string  `json:"fuel_type"`
	Budget            *int64   `json:"budget" validate:"omitempty,gte=0"`
	RecommendedCarIDs []string `json:"recommended_car_ids"`
	SelectedCarID     *string  `json:"selected_car_id"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	sess, err := s.services.Sessions.Update(r.Context(), id, session.UpdateRequest{
		Step:              req.Step,
		Action:            req.Action,
		UsageTags:         req.UsageTags,
		PriorityTags:      req.PriorityTags,
		BodyType:          req.BodyType,
		FuelType:          req.FuelType,
		Budget:            req.Budget,
		RecommendedCarIDs: req.RecommendedCarIDs,
		SelectedCarID:     req.SelectedCarID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.services.Activity.RecordSessionStep(r.Context(), id, req.Step, req.Action, sess.CompletedByLastStep()); err != nil {
		s.logger.Warn("failed to record session step", "session_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, sess)
}

// HistoryResponse is the body of GET /api/sessions/{id}/history.
type HistoryResponse struct {
	SessionID string              `json:"session_id"`
	Steps     []session.Step      `json:"steps"`
	Replay    session.ReplayState `json:"replay"`
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	steps, err := s.services.Sessions.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if steps == nil {
		steps = []session.Step{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: id,
		Steps:     steps,
		Replay:    session.Replay(steps),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	opts, err := parseActivityQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.services.Activity.GetRecentActivity(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseActivityQuery(r *http.Request) (activity.ListActivityOptions, error) {
	q := r.URL.Query()
	opts := activity.ListActivityOptions{Limit: 50}

	if v := q.Get("session_id"); v != "" {
		opts.SessionID = &v
	}
	if v := q.Get("type"); v != "" {
		t := activity.ActivityType(v)
		opts.ActivityType = &t
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("%w: since must be RFC3339", errBadRequest)
		}
		opts.Since = &since
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
		}
		*dst = n
	}
	return opts, nil
}

// clientIP returns the request address without its port. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
