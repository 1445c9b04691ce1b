package insight

import "testing"

func TestExtractTrendLabel(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
		wantOK  bool
	}{
		{
			name:    "bold marker",
			summary: "## What's Trending\n- x\n\n🧠 **Trend Label:** AI-Powered Sales Automation\n",
			want:    "AI-Powered Sales Automation",
			wantOK:  true,
		},
		{
			name:    "plain marker",
			summary: "Trend Label: Founder-led storytelling",
			want:    "Founder-led storytelling",
			wantOK:  true,
		},
		{
			name:    "underscore emphasis",
			summary: "__Trend Label:__ __Quiet quitting__",
			want:    "Quiet quitting",
			wantOK:  true,
		},
		{
			name:    "first matching line wins",
			summary: "Trend Label: One\nTrend Label: Two",
			want:    "One",
			wantOK:  true,
		},
		{name: "absent", summary: "## What's Trending\n- nothing here"},
		{name: "blank label", summary: "🧠 **Trend Label:** **", wantOK: true},
		{name: "empty label", summary: "🧠 **Trend Label:**\n## What's Trending", wantOK: true},
		{name: "empty summary", summary: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTrendLabel(tt.summary)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractTrendLabel() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestInsight_TrendLabelNil(t *testing.T) {
	var i *Insight
	if _, ok := i.TrendLabel(); ok {
		t.Error("nil insight reported a label")
	}
}
