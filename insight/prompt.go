package insight

import (
	"fmt"
	"strings"
)

// Section headings the prompt asks the model to produce.
const (
	SectionTrending = "What's Trending"
	SectionAngles   = "Recurring Angles"
	SectionWhy      = "Why These Posts Worked"

	// TrendLabelMarker is the token that introduces the trend label line.
	TrendLabelMarker = "Trend Label:"
)

// FormatPosts renders posts as numbered blocks in input order.
func FormatPosts(posts []Post) string {
	var b strings.Builder
	for i, p := range posts {
		fmt.Fprintf(&b, "\n---\nPost %d:\n", i+1)
		fmt.Fprintf(&b, "Author: %s\n", p.Author)
		fmt.Fprintf(&b, "Engagement: %d\n", p.Engagement)
		fmt.Fprintf(&b, "Category: %s\n", p.PrimaryCategory)
		fmt.Fprintf(&b, "Text:\n%s\n", p.PostText)
	}
	return b.String()
}

// BuildPrompt assembles the analysis prompt for one category.
func BuildPrompt(posts []Post, category string) string {
	return fmt.Sprintf(`Analyze these top LinkedIn posts from the %q category and provide insights in this exact structure:

%s

Generate a professional insight summary with this structure:

## %s
(3-4 bullet points about the main themes you see)

## %s
(3-4 bullet points about common angles/approaches in these posts)

## %s
(3-4 bullet points explaining what made them successful - engagement, messaging, timing, etc.)

🧠 **%s** [One specific trend or shift you identified in 3-5 words]

Keep the insights concise, actionable, and grounded in what you see in the posts. Use markdown formatting.
Make sure insights are valuable for someone trying to understand what's working in the %s space.`,
		category, FormatPosts(posts), SectionTrending, SectionAngles, SectionWhy, TrendLabelMarker, category)
}
