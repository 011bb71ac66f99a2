package posts

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/scribe/pkg/query"
	"github.com/JaimeStill/scribe/pkg/repository"
)

const columns = "id, keyword, title, status, rewrite_count, content, created_at, updated_at"

var projection = query.
	NewProjectionMap("public", "posts", "p").
	Project("id", "ID").
	Project("keyword", "Keyword").
	Project("title", "Title").
	Project("status", "Status").
	Project("rewrite_count", "RewriteCount").
	Project("content", "Content").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for post queries.
// Status uses exact matching; Keyword uses case-insensitive contains matching.
type Filters struct {
	Status  *Status `json:"status,omitempty"`
	Keyword *string `json:"keyword,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	return b.
		WhereEquals("Status", status).
		WhereContains("Keyword", f.Keyword)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unknown status values are dropped.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		if st, err := ParseStatus(s); err == nil {
			f.Status = &st
		}
	}

	if k := values.Get("keyword"); k != "" {
		f.Keyword = &k
	}

	return f
}

func scanPost(s repository.Scanner) (Post, error) {
	var (
		p   Post
		raw []byte
	)

	err := s.Scan(
		&p.ID,
		&p.Keyword,
		&p.Title,
		&p.Status,
		&p.RewriteCount,
		&raw,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(raw, &p.Content); err != nil {
		return p, fmt.Errorf("decode content for post %s: %w", p.ID, err)
	}

	return p, nil
}
