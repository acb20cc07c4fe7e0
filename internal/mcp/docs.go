package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `carwizard recommends vehicles from a catalog and records wizard sessions.

Workflow:
1) Call list_tags to learn the usage tags, priority tags, body types and fuel options.
2) Call start_session to open a session. Keep the returned id.
3) As the user answers, call update_session with the step name, an action and only the fields that changed.
   - Omitted fields keep their stored value. An empty list clears a list.
   - Action "complete" marks the session complete. Completion is recorded once.
4) Call recommend_vehicles with the criteria. Pass session_id to store the shown vehicle ids on the session.
5) get_session and get_session_history read the current state and the append-only step history.

Matching rules:
- budget is a price ceiling. body_type matches as a case-insensitive substring. fuel_type is a case-insensitive prefix after label translation.
- "Any" for body_type or fuel_type means no constraint.
- Tags never exclude a vehicle. They only rank: 10 per matching usage or priority tag plus a tenth of the quality score.

Docs:
- carwizard://docs/index
- carwizard://docs/ranking
- carwizard://docs/sessions
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "carwizard://docs/index",
		Name:        "docs_index",
		Title:       "carwizard docs index",
		Description: "Entry point: which tools exist and what to read next.",
		Content: `# carwizard

## Tools

| tool | purpose |
| --- | --- |
| list_tags | wizard vocabulary: tag categories, body types, fuel options |
| recommend_vehicles | filtered and ranked vehicles for a set of criteria |
| start_session | create a session, or resume one by id |
| get_session | current session state |
| update_session | record one wizard step as a partial update |
| get_session_history | step history plus the state it replays to |

## Read next

- carwizard://docs/ranking for how vehicles are filtered and scored
- carwizard://docs/sessions for session merge and history rules
`,
	},
	{
		URI:         "carwizard://docs/ranking",
		Name:        "docs_ranking",
		Title:       "Filtering and ranking",
		Description: "How criteria exclude vehicles and how the remaining ones are scored.",
		Content: `# Filtering and ranking

## Filter

A vehicle is eligible only if every constraint holds:

- price <= budget, when a budget is given
- body_type contains the requested body type, ignoring case
- fuel_type starts with the translated fuel label, ignoring case

"Any" (any case) or an empty value disables the body or fuel constraint.
Usage and priority tags never filter.

## Score

    score = 10 * tag matches + 0.1 * quality_score

Usage and priority tags are pooled into one search list. Each tag counts
once per occurrence in that list.
Ties keep catalog order.

## Example

Usage [family], priority [safety]:

- A: quality 80, tags [family] scores 18
- B: quality 60, tags [family, safety] scores 26

B ranks first.
`,
	},
	{
		URI:         "carwizard://docs/sessions",
		Name:        "docs_sessions",
		Title:       "Sessions",
		Description: "Partial updates, history and completion.",
		Content: `# Sessions

- Every update_session call appends exactly one step to history.
- Each step stores the step name, the action, a timestamp and a full snapshot of the session fields after the merge.
- Omitted fields are unchanged. An empty list is a value and clears the list.
- completed_at is set by the first "complete" action and never changes afterwards.
- A failed update changes nothing and appends nothing.
- A CONFLICT error means another writer appended a step first. Reload with get_session and retry.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
