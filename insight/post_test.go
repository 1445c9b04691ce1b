package insight

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestPost_Validate(t *testing.T) {
	if err := (Post{Author: "A", Engagement: 0}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	err := (Post{Author: "A", Engagement: -1}).Validate()
	if !errors.Is(err, ErrInvalidPost) {
		t.Fatalf("Validate() error = %v, want ErrInvalidPost", err)
	}
}

func TestEngagementOf(t *testing.T) {
	tests := []struct {
		reactions, comments, reposts int
		want                         int
	}{
		{100, 15, 5, 120},
		{0, 0, 0, 0},
		{10, -1, 2, 12},
	}
	for _, tt := range tests {
		if got := EngagementOf(tt.reactions, tt.comments, tt.reposts); got != tt.want {
			t.Errorf("EngagementOf(%d, %d, %d) = %d, want %d", tt.reactions, tt.comments, tt.reposts, got, tt.want)
		}
	}
}

func TestPostSnapshot_AlwaysSerializesTextAndURL(t *testing.T) {
	data, err := json.Marshal(Post{Author: "A", Engagement: 3, PrimaryCategory: "Sales"}.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"author", "engagement", "primary_category", "post_text", "post_url"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("snapshot JSON missing %q: %s", key, data)
		}
	}
	if fields["post_text"] != "" || fields["post_url"] != "" {
		t.Errorf("missing text/url should serialize as empty strings: %s", data)
	}
}

func TestTopPosts(t *testing.T) {
	posts := []Post{
		{Author: "a", Engagement: 50, PrimaryCategory: "Sales"},
		{Author: "b", Engagement: 120, PrimaryCategory: "Sales"},
		{Author: "c", Engagement: 999, PrimaryCategory: "Tech"},
		{Author: "d", Engagement: 80, PrimaryCategory: "Sales"},
		{Author: "e", Engagement: 80, PrimaryCategory: "Sales"},
		{Author: "f", Engagement: 10, PrimaryCategory: "Sales"},
	}

	got := TopPosts(posts, "Sales", 3)
	var authors []string
	for _, p := range got {
		authors = append(authors, p.Author)
	}
	if want := []string{"b", "d", "e"}; !reflect.DeepEqual(authors, want) {
		t.Errorf("TopPosts authors = %v, want %v", authors, want)
	}

	if got := TopPosts(posts, "Sales", 0); len(got) != DefaultTopN {
		t.Errorf("TopPosts with n=0 returned %d posts, want %d", len(got), DefaultTopN)
	}
	if got := TopPosts(posts, "Marketing", 5); len(got) != 0 {
		t.Errorf("TopPosts for unknown category returned %d posts", len(got))
	}
}

func TestCategories(t *testing.T) {
	posts := []Post{
		{PrimaryCategory: "Tech"},
		{PrimaryCategory: "Sales"},
		{PrimaryCategory: " "},
		{PrimaryCategory: "Tech"},
	}
	if got, want := Categories(posts), []string{"Sales", "Tech"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestPostSnapshot_UnmarshalWholeNumberFloat(t *testing.T) {
	var s PostSnapshot
	data := `{"author":"Ana","engagement":120.0,"primary_category":"Sales","post_text":"","post_url":""}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := PostSnapshot{Author: "Ana", Engagement: 120, PrimaryCategory: "Sales"}
	if s != want {
		t.Errorf("snapshot = %+v, want %+v", s, want)
	}

	if err := json.Unmarshal([]byte(`{"engagement":12.5}`), &s); err == nil {
		t.Error("Unmarshal() accepted a fractional engagement")
	}
}

func TestPost_UnmarshalEngagement(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: `{"author":"A","engagement":7}`, want: 7},
		{in: `{"author":"A","engagement":7.0}`, want: 7},
		{in: `{"author":"A","engagement":1e3}`, want: 1000},
		{in: `{"author":"A"}`, want: 0},
		{in: `{"author":"A","engagement":0.5}`, wantErr: true},
		{in: `{"author":"A","engagement":"many"}`, wantErr: true},
	}
	for _, tt := range tests {
		var p Post
		err := json.Unmarshal([]byte(tt.in), &p)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (p.Engagement != tt.want || p.Author != "A") {
			t.Errorf("Unmarshal(%s) = %+v, want engagement %d", tt.in, p, tt.want)
		}
	}
}
