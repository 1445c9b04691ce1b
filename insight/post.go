package insight

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultTopN is the number of posts analyzed per category.
const DefaultTopN = 5

// Post is a single LinkedIn post as supplied by the data collaborator.
//
// PostText and PostURL may be empty when the source spreadsheet has no value.
type Post struct {
	Author          string `json:"author"`
	Engagement      int    `json:"engagement"`
	PrimaryCategory string `json:"primary_category"`
	PostText        string `json:"post_text,omitempty"`
	PostURL         string `json:"post_url,omitempty"`
}

// Validate rejects records the core cannot analyze.
func (p Post) Validate() error {
	if p.Engagement < 0 {
		return fmt.Errorf("%w: negative engagement %d for author %q", ErrInvalidPost, p.Engagement, p.Author)
	}
	return nil
}

// EngagementOf sums reactions, comments and reposts. Negative counts are
// treated as missing.
func EngagementOf(reactions, comments, reposts int) int {
	total := 0
	for _, n := range []int{reactions, comments, reposts} {
		if n > 0 {
			total += n
		}
	}
	return total
}

// PostSnapshot is the persisted copy of a post inside an Insight.
// Every field is always serialized; missing text or url become "".
type PostSnapshot struct {
	Author          string `json:"author"`
	Engagement      int    `json:"engagement"`
	PrimaryCategory string `json:"primary_category"`
	PostText        string `json:"post_text"`
	PostURL         string `json:"post_url"`
}

// UnmarshalJSON accepts engagement written as a whole-number float such as
// 120.0.
func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	aux := struct {
		*plain
		Engagement json.Number `json:"engagement"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n, err := wholeNumber(aux.Engagement)
	if err != nil {
		return err
	}
	p.Engagement = n
	return nil
}

// UnmarshalJSON accepts engagement written as a whole-number float.
func (s *PostSnapshot) UnmarshalJSON(data []byte) error {
	type plain PostSnapshot
	aux := struct {
		*plain
		Engagement json.Number `json:"engagement"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n, err := wholeNumber(aux.Engagement)
	if err != nil {
		return err
	}
	s.Engagement = n
	return nil
}

func wholeNumber(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("engagement: %q is not a whole number", string(n))
	}
	return int(f), nil
}

// Snapshot converts p into its persisted form.
func (p Post) Snapshot() PostSnapshot {
	return PostSnapshot{
		Author:          p.Author,
		Engagement:      p.Engagement,
		PrimaryCategory: p.PrimaryCategory,
		PostText:        p.PostText,
		PostURL:         p.PostURL,
	}
}

// Insight is the structured result of one generation.
type Insight struct {
	Category      string         `json:"category"`
	PostCount     int            `json:"post_count"`
	Summary       string         `json:"summary"`
	PostsAnalyzed []PostSnapshot `json:"posts_analyzed"`
}

// TrendLabel returns the label line of the summary, if any.
func (i *Insight) TrendLabel() (string, bool) {
	if i == nil {
		return "", false
	}
	return ExtractTrendLabel(i.Summary)
}

// TopPosts returns up to n posts of category ordered by engagement, highest
// first. Posts with equal engagement keep their input order.
func TopPosts(posts []Post, category string, n int) []Post {
	if n <= 0 {
		n = DefaultTopN
	}

	selected := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.PrimaryCategory == category {
			selected = append(selected, p)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Engagement > selected[j].Engagement
	})

	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

// Categories lists the distinct non-empty categories in posts, sorted.
func Categories(posts []Post) []string {
	seen := make(map[string]struct{})
	for _, p := range posts {
		if strings.TrimSpace(p.PrimaryCategory) == "" {
			continue
		}
		seen[p.PrimaryCategory] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
