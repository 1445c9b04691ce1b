package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/pipeline"
	"github.com/jonwraymond/postinsights/secret"
)

const maxBodyBytes = 10 << 20

type categoryRequest struct {
	Category string         `json:"category"`
	TopPosts []insight.Post `json:"top_posts"`
}

// insightsRequest carries either ranked selections per category, raw posts
// to rank, or both. Categories default to every category present in Posts.
type insightsRequest struct {
	Authors    []string          `json:"authors"`
	Filters    map[string]any    `json:"filters"`
	Posts      []insight.Post    `json:"posts"`
	Categories []categoryRequest `json:"categories"`
	TopN       int               `json:"top_n"`
}

type insightResult struct {
	Category    string           `json:"category"`
	Status      pipeline.Status  `json:"status"`
	FromCache   bool             `json:"from_cache"`
	Persisted   bool             `json:"persisted"`
	PostCount   int              `json:"post_count"`
	GeneratedAt *time.Time       `json:"generated_at,omitempty"`
	TrendLabel  string           `json:"trend_label,omitempty"`
	Insights    *insight.Insight `json:"insights,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type apiKeyStatus struct {
	Ready  bool   `json:"ready"`
	Source string `json:"source"`
	Ref    string `json:"ref"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) buildRequests(body insightsRequest) ([]pipeline.Request, error) {
	for _, p := range body.Posts {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	topN := body.TopN
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	cats := body.Categories
	if len(cats) == 0 {
		for _, c := range insight.Categories(body.Posts) {
			cats = append(cats, categoryRequest{Category: c})
		}
	}
	if len(cats) == 0 {
		return nil, errors.New("no categories requested and no posts to derive them from")
	}

	reqs := make([]pipeline.Request, 0, len(cats))
	for _, c := range cats {
		if strings.TrimSpace(c.Category) == "" {
			return nil, errors.New("category must not be empty")
		}
		if len(c.TopPosts) > topN {
			return nil, fmt.Errorf("category %q: %d top posts exceed the limit of %d", c.Category, len(c.TopPosts), topN)
		}
		for _, p := range c.TopPosts {
			if err := p.Validate(); err != nil {
				return nil, err
			}
		}
		top := c.TopPosts
		if len(top) == 0 {
			top = insight.TopPosts(body.Posts, c.Category, topN)
		}
		reqs = append(reqs, pipeline.Request{
			Category: c.Category,
			Authors:  body.Authors,
			Filters:  body.Filters,
			TopPosts: top,
		})
	}
	return reqs, nil
}

func toResult(o pipeline.Outcome) insightResult {
	res := insightResult{
		Category:   o.Category,
		Status:     o.Status,
		FromCache:  o.FromCache,
		Persisted:  o.Persisted,
		PostCount:  o.PostCount,
		TrendLabel: o.TrendLabel,
		Insights:   o.Insight,
	}
	if !o.GeneratedAt.IsZero() {
		at := o.GeneratedAt
		res.GeneratedAt = &at
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	return res
}

func (s *Server) postInsights(w http.ResponseWriter, r *http.Request) {
	var body insightsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	reqs, err := s.buildRequests(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	outcomes := s.pipeline.RunBatch(r.Context(), reqs)
	results := make([]insightResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = toResult(o)
	}
	writeSuccess(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) getCache(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipeline.Store().Summary(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (s *Server) deleteCache(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Store().Clear(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "cache cleared")
}

func (s *Server) apiKeyStatus(r *http.Request) (apiKeyStatus, error) {
	st := apiKeyStatus{Source: "none", Ref: s.chain.Ref()}
	res, err := s.chain.Resolve(r.Context())
	switch {
	case errors.Is(err, secret.ErrNoCredential):
		return st, nil
	case err != nil:
		return st, err
	}
	st.Ready = true
	st.Source = res.Source
	return st, nil
}

func (s *Server) writeAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.apiKeyStatus(r)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "CREDENTIAL_UNAVAILABLE", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

func (s *Server) getAPIKey(w http.ResponseWriter, r *http.Request) {
	s.writeAPIKeyStatus(w, r)
}

func (s *Server) putAPIKey(w http.ResponseWriter, r *http.Request) {
	session, ok := s.chain.Session()
	if !ok {
		writeError(w, r, http.StatusConflict, "SESSION_DISABLED", "session credentials are not enabled")
		return
	}
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "api_key must not be blank")
		return
	}
	session.Set(body.APIKey)
	s.writeAPIKeyStatus(w, r)
}

func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	session, ok := s.chain.Session()
	if !ok {
		writeError(w, r, http.StatusConflict, "SESSION_DISABLED", "session credentials are not enabled")
		return
	}
	session.Clear()
	s.writeAPIKeyStatus(w, r)
}
