package shotgrid

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// tokenResponse is the body of /auth/access_token.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// searchResponse is the body of /entity/{collection}/_search.
type searchResponse struct {
	Data []apiEntity `json:"data"`
}

// apiEntity is one entity as the REST API returns it: scalar fields under
// attributes, links under relationships.
type apiEntity struct {
	Type          string                     `json:"type"`
	ID            int                        `json:"id"`
	Attributes    map[string]any             `json:"attributes"`
	Relationships map[string]json.RawMessage `json:"relationships"`
}

type apiRelationship struct {
	Data any `json:"data"`
}

type apiErrors struct {
	Errors []struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// record flattens the entity into a domain.Record.
func (e apiEntity) record() domain.Record {
	rec := make(domain.Record, len(e.Attributes)+len(e.Relationships)+2)
	for k, v := range e.Attributes {
		rec[k] = v
	}
	for k, raw := range e.Relationships {
		var rel apiRelationship
		if err := json.Unmarshal(raw, &rel); err != nil {
			continue
		}
		rec[k] = rel.Data
	}
	rec["type"] = e.Type
	rec["id"] = e.ID
	return rec
}

// apiError extracts a readable message from an error body.
func apiError(body []byte) string {
	var e apiErrors
	if err := json.Unmarshal(body, &e); err != nil || len(e.Errors) == 0 {
		if len(body) > 200 {
			body = body[:200]
		}
		return strings.TrimSpace(string(body))
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msg := item.Title
		if item.Detail != "" {
			msg += ": " + item.Detail
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// encodeFilters renders filters in the array form, e.g.
// [["id", "is", 42], ["project", "is", {"type": "Project", "id": 70}]].
func encodeFilters(filters []domain.Filter) [][]any {
	out := make([][]any, len(filters))
	for i, f := range filters {
		op := f.Operator
		if op == "" {
			op = "is"
		}
		out[i] = []any{f.Field, op, encodeValue(f.Value)}
	}
	return out
}

func encodeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = encodeValue(v)
	}
	return out
}

func encodeValue(v any) any {
	switch ref := v.(type) {
	case domain.EntityRef:
		return map[string]any{"type": ref.Type, "id": ref.ID}
	case []domain.EntityRef:
		out := make([]any, len(ref))
		for i, r := range ref {
			out[i] = encodeValue(r)
		}
		return out
	}
	return v
}

// Collection returns the REST collection name of an entity type:
// "HumanUser" -> "human_users", "Reply" -> "replies".
func Collection(entityType string) string {
	var b strings.Builder
	for i, r := range entityType {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	name := b.String()
	switch {
	case strings.HasSuffix(name, "y") && !strings.HasSuffix(name, "ay") && !strings.HasSuffix(name, "ey"):
		return strings.TrimSuffix(name, "y") + "ies"
	case strings.HasSuffix(name, "s"):
		return name + "es"
	}
	return name + "s"
}

func sortUsers(users []domain.DirectoryUser) {
	slices.SortFunc(users, func(a, b domain.DirectoryUser) int { return a.ID - b.ID })
}
