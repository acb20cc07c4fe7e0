package mcp

import (
	"context"
	"log/slog"

	"github.com/goccy/go-json"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/taxonomy"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/rpggio/carwizard/internal/validation"
)

type toolset struct {
	services     Services
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

func registerTools(server *sdkmcp.Server, t *toolset) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tags",
		Description: "List the wizard vocabulary: usage and priority tag categories, body types and fuel options",
	}, t.listTags)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recommend_vehicles",
		Description: "Filter the catalog by budget, body type and fuel type, then rank by tag matches. Tags never exclude vehicles.",
	}, t.recommendVehicles)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_session",
		Description: "Start a wizard session, or resume an existing one by id",
	}, t.startSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_session",
		Description: "Get the current state of a wizard session",
	}, t.getSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_session",
		Description: "Record one wizard step. Omitted fields keep their value; an empty list clears it. Action \"complete\" marks the session complete.",
	}, t.updateSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_session_history",
		Description: "Get the append-only step history of a session and the state it replays to",
	}, t.getSessionHistory)
}

// ListTagsParams takes no arguments.
type ListTagsParams struct{}

// TagsResult is the wizard vocabulary.
type TagsResult struct {
	Categories []taxonomy.Category `json:"categories"`
	BodyTypes  []string            `json:"body_types"`
	FuelTypes  []string            `json:"fuel_types"`
}

func (t *toolset) listTags(_ context.Context, _ *sdkmcp.CallToolRequest, _ ListTagsParams) (*sdkmcp.CallToolResult, any, error) {
	return jsonResult(TagsResult{
		Categories: taxonomy.Categories(),
		BodyTypes:  taxonomy.BodyTypes(),
		FuelTypes:  taxonomy.FuelOptions(),
	})
}

// RecommendParams are the arguments of recommend_vehicles.
type RecommendParams struct {
	Budget       *int64   `json:"budget,omitempty" jsonschema:"maximum price, omit for no ceiling" validate:"omitempty,gte=0"`
	BodyType     string   `json:"body_type,omitempty" jsonschema:"body type substring, or Any"`
	FuelType     string   `json:"fuel_type,omitempty" jsonschema:"fuel option label, or Any"`
	UsageTags    []string `json:"usage_tags,omitempty" jsonschema:"usage tags from list_tags"`
	PriorityTags []string `json:"priority_tags,omitempty" jsonschema:"priority tags from list_tags"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of vehicles to return" validate:"gte=0"`
	SessionID    string   `json:"session_id,omitempty" jsonschema:"session that stores the returned vehicle ids"`
}

// RecommendResult is the ranked list returned by recommend_vehicles.
type RecommendResult struct {
	Vehicles []vehicle.RankedVehicle `json:"vehicles"`
	Total    int                     `json:"total"`
	Session  *session.Session        `json:"session,omitempty"`
}

func (t *toolset) recommendVehicles(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecommendParams) (*sdkmcp.CallToolResult, any, error) {
	if verr := validation.ValidateStruct(&in); verr != nil {
		return errorResult(verr)
	}

	criteria := vehicle.Criteria{
		Budget:       in.Budget,
		BodyType:     in.BodyType,
		FuelType:     in.FuelType,
		UsageTags:    in.UsageTags,
		PriorityTags: in.PriorityTags,
	}
	ranked, err := t.services.Recommend.Recommend(ctx, criteria)
	if err != nil {
		return errorResult(err)
	}

	shown := vehicle.Top(ranked, recommend.EffectiveLimit(in.Limit, t.defaultLimit, t.maxLimit))
	ids := vehicle.IDs(shown)
	result := RecommendResult{Vehicles: shown, Total: len(ranked)}

	if in.SessionID != "" {
		sess, err := t.services.Sessions.Update(ctx, in.SessionID, session.UpdateRequest{
			Step:              "recommendation",
			Action:            session.ActionRecommend,
			RecommendedCarIDs: ids,
		})
		if err != nil {
			return errorResult(err)
		}
		result.Session = sess
	}

	if err := t.services.Activity.RecordRecommendation(ctx, in.SessionID, criteria, ids); err != nil {
		t.logger.Warn("failed to record recommendation", "error", err)
	}
	return jsonResult(result)
}

// StartSessionParams are the arguments of start_session.
type StartSessionParams struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"existing session to resume; unknown ids start a new session"`
}

// StartSessionResult reports the session and whether it was created.
type StartSessionResult struct {
	Session *session.Session `json:"session"`
	Created bool             `json:"created"`
}

func (t *toolset) startSession(ctx context.Context, req *sdkmcp.CallToolRequest, in StartSessionParams) (*sdkmcp.CallToolResult, any, error) {
	sess, created, err := t.services.Sessions.CreateOrGet(ctx, in.SessionID, clientMetadata(ctx, req))
	if err != nil {
		return errorResult(err)
	}
	if created {
		if err := t.services.Activity.RecordSessionStarted(ctx, sess.ID); err != nil {
			t.logger.Warn("failed to record session start", "session_id", sess.ID, "error", err)
		}
	}
	return jsonResult(StartSessionResult{Session: sess, Created: created})
}

// GetSessionParams identify a session.
type GetSessionParams struct {
	SessionID string `json:"session_id" jsonschema:"session id"`
}

func (t *toolset) getSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetSessionParams) (*sdkmcp.CallToolResult, any, error) {
	sess, err := t.services.Sessions.Get(ctx, in.SessionID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(sess)
}

// UpdateSessionParams are the arguments of update_session.
type UpdateSessionParams struct {
	SessionID         string   `json:"session_id" jsonschema:"session id"`
	Step              string   `json:"step" jsonschema:"wizard step name, e.g. usage or budget" validate:"required"`
	Action            string   `json:"action" jsonschema:"what happened in the step, e.g. select or complete" validate:"required"`
	UsageTags         []string `json:"usage_tags,omitempty" jsonschema:"replaces the usage tags"`
	PriorityTags      []string `json:"priority_tags,omitempty" jsonschema:"replaces the priority tags"`
	BodyType          *string  `json:"body_type,omitempty" jsonschema:"replaces the body type"`
	FuelType          *string  `json:"fuel_type,omitempty" jsonschema:"replaces the fuel type"`
	Budget            *int64   `json:"budget,omitempty" jsonschema:"replaces the budget" validate:"omitempty,gte=0"`
	RecommendedCarIDs []string `json:"recommended_car_ids,omitempty" jsonschema:"replaces the recommended vehicle ids"`
	SelectedCarID     *string  `json:"selected_car_id,omitempty" jsonschema:"replaces the selected vehicle id"`
}

func (t *toolset) updateSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateSessionParams) (*sdkmcp.CallToolResult, any, error) {
	if verr := validation.ValidateStruct(&in); verr != nil {
		return errorResult(verr)
	}

	sess, err := t.services.Sessions.Update(ctx, in.SessionID, session.UpdateRequest{
		Step:              in.Step,
		Action:            in.Action,
		UsageTags:         in.UsageTags,
		PriorityTags:      in.PriorityTags,
		BodyType:          in.BodyType,
		FuelType:          in.FuelType,
		Budget:            in.Budget,
		RecommendedCarIDs: in.RecommendedCarIDs,
		SelectedCarID:     in.SelectedCarID,
	})
	if err != nil {
		return errorResult(err)
	}

	if err := t.services.Activity.RecordSessionStep(ctx, in.SessionID, in.Step, in.Action, sess.CompletedByLastStep()); err != nil {
		t.logger.Warn("failed to record session step", "session_id", in.SessionID, "error", err)
	}
	return jsonResult(sess)
}

// HistoryResult is a session's step history and its replayed state.
type HistoryResult struct {
	SessionID string              `json:"session_id"`
	Steps     []session.Step      `json:"steps"`
	Replay    session.ReplayState `json:"replay"`
}

func (t *toolset) getSessionHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetSessionParams) (*sdkmcp.CallToolResult, any, error) {
	steps, err := t.services.Sessions.History(ctx, in.SessionID)
	if err != nil {
		return errorResult(err)
	}
	if steps == nil {
		steps = []session.Step{}
	}
	return jsonResult(HistoryResult{
		SessionID: in.SessionID,
		Steps:     steps,
		Replay:    session.Replay(steps),
	})
}

// clientMetadata describes the MCP caller. HTTP requests carry a user
// agent; stdio callers are recorded by identity.
func clientMetadata(ctx context.Context, req *sdkmcp.CallToolRequest) session.ClientMetadata {
	meta := session.ClientMetadata{UserAgent: "mcp/" + getIdentity(ctx)}
	if req == nil {
		return meta
	}
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if ua := extra.Header.Get("User-Agent"); ua != "" {
			meta.UserAgent = ua
		}
		if ip := extra.Header.Get("X-Real-Ip"); ip != "" {
			meta.IP = ip
		}
	}
	return meta
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := MapError(err)
	data, merr := json.Marshal(apiErr)
	if merr != nil {
		return nil, nil, merr
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
