// package formatter renders cached profile summaries to text and Markdown
package formatter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/desertthunder/aura/internal/models"
)

var windowLabels = map[models.TimeRange]string{
	models.TimeRangeShort:  "Last 4 weeks",
	models.TimeRangeMedium: "Last 6 months",
	models.TimeRangeLong:   "All time",
}

// SummaryToText renders a DataSummary as plain text for terminal display.
func SummaryToText(summary *models.DataSummary) []byte {
	var buf bytes.Buffer

	name := summary.Profile.DisplayName
	if name == "" {
		name = summary.Profile.ID
	}

	buf.WriteString(fmt.Sprintf("Profile: %s\n", name))
	if summary.Profile.Country != "" {
		buf.WriteString(fmt.Sprintf("Country: %s\n", summary.Profile.Country))
	}
	buf.WriteString(fmt.Sprintf("Followers: %d\n", summary.Profile.Followers))
	buf.WriteString(fmt.Sprintf("Last synced: %s\n\n", summary.LastUpdated.Local().Format(time.RFC1123)))

	buf.WriteString("Library:\n")
	for _, window := range models.TimeRanges() {
		buf.WriteString(fmt.Sprintf("  %s: %d top tracks, %d top artists\n",
			windowLabels[window], summary.TopTrackCounts[window], summary.TopArtistCounts[window]))
	}
	buf.WriteString(fmt.Sprintf("  Recently played: %d\n", summary.RecentCount))
	buf.WriteString(fmt.Sprintf("  Saved tracks: %d\n", summary.SavedCount))
	buf.WriteString(fmt.Sprintf("  Playlists: %d\n", summary.PlaylistCount))

	if summary.Analysis != nil {
		buf.WriteString("\n")
		writeAnalysisText(&buf, summary.Analysis)
	}

	return buf.Bytes()
}

func writeAnalysisText(buf *bytes.Buffer, analysis *models.Analysis) {
	if len(analysis.TopGenres) > 0 {
		buf.WriteString("Top genres:\n")
		for i, g := range analysis.TopGenres {
			buf.WriteString(fmt.Sprintf("  %d. %s (%d)\n", i+1, g.Genre, g.Count))
		}
	}

	buf.WriteString(fmt.Sprintf("Artist diversity: %.2f\n", analysis.ArtistDiversity))

	if p := analysis.AudioProfile; p != nil {
		buf.WriteString("Audio profile:\n")
		buf.WriteString(fmt.Sprintf("  Energy: %.2f  Valence: %.2f  Danceability: %.2f\n", p.Energy, p.Valence, p.Danceability))
		buf.WriteString(fmt.Sprintf("  Acousticness: %.2f  Instrumentalness: %.2f  Tempo: %.0f BPM\n", p.Acousticness, p.Instrumentalness, p.Tempo))
	} else {
		buf.WriteString("Audio profile: not available (no tracks with feature vectors)\n")
	}
}

// SummaryToMarkdown renders a DataSummary as a Markdown document.
func SummaryToMarkdown(summary *models.DataSummary) []byte {
	var buf bytes.Buffer

	name := summary.Profile.DisplayName
	if name == "" {
		name = summary.Profile.ID
	}

	buf.WriteString(fmt.Sprintf("# Listening profile: %s\n\n", name))
	buf.WriteString(fmt.Sprintf("**Followers**: %d\n", summary.Profile.Followers))
	if summary.Profile.Country != "" {
		buf.WriteString(fmt.Sprintf("**Country**: %s\n", summary.Profile.Country))
	}
	buf.WriteString(fmt.Sprintf("**Last synced**: %s\n\n", summary.LastUpdated.Local().Format(time.RFC1123)))

	buf.WriteString("## Library\n\n")
	buf.WriteString("| Window | Top tracks | Top artists |\n")
	buf.WriteString("|--------|-----------:|------------:|\n")
	for _, window := range models.TimeRanges() {
		buf.WriteString(fmt.Sprintf("| %s | %d | %d |\n",
			windowLabels[window], summary.TopTrackCounts[window], summary.TopArtistCounts[window]))
	}
	buf.WriteString(fmt.Sprintf("\nRecently played: %d · Saved tracks: %d · Playlists: %d\n",
		summary.RecentCount, summary.SavedCount, summary.PlaylistCount))

	if analysis := summary.Analysis; analysis != nil {
		buf.WriteString("\n## Analysis\n\n")
		if len(analysis.TopGenres) > 0 {
			buf.WriteString("### Top genres\n\n")
			for i, g := range analysis.TopGenres {
				buf.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, g.Genre, g.Count))
			}
			buf.WriteString("\n")
		}

		buf.WriteString(fmt.Sprintf("**Artist diversity**: %.2f\n\n", analysis.ArtistDiversity))

		if p := analysis.AudioProfile; p != nil {
			buf.WriteString("### Audio profile\n\n")
			buf.WriteString("| Feature | Value |\n|---------|------:|\n")
			buf.WriteString(fmt.Sprintf("| Energy | %.2f |\n", p.Energy))
			buf.WriteString(fmt.Sprintf("| Valence | %.2f |\n", p.Valence))
			buf.WriteString(fmt.Sprintf("| Danceability | %.2f |\n", p.Danceability))
			buf.WriteString(fmt.Sprintf("| Acousticness | %.2f |\n", p.Acousticness))
			buf.WriteString(fmt.Sprintf("| Instrumentalness | %.2f |\n", p.Instrumentalness))
			buf.WriteString(fmt.Sprintf("| Tempo | %.0f BPM |\n", p.Tempo))
		}
	}

	return buf.Bytes()
}
