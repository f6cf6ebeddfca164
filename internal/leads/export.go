package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/storage/models"
)

var csvHeader = []string{"Name", "Username", "State", "Notes", "Added Date", "Followers", "Video Likes"}

// Export serializes the full lead set. Supported formats are "json" and
// "csv".
func (s *Store) Export(ctx context.Context, format string) ([]byte, error) {
	leads, err := s.db.ListLeads("")
	if err != nil {
		return nil, err
	}

	switch format {
	case "json":
		metrics.LeadExports.WithLabelValues("json").Inc()
		return json.MarshalIndent(leads, "", "  ")
	case "csv":
		metrics.LeadExports.WithLabelValues("csv").Inc()
		return []byte(exportCSV(leads)), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// exportCSV emits a header row plus one quoted row per lead. Every field is
// quoted so free text containing commas or newlines round-trips; inner
// quotes are doubled.
func exportCSV(leads []models.Lead) string {
	if len(leads) == 0 {
		return ""
	}

	lines := make([]string, 0, len(leads)+1)
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, l := range leads {
		row := []string{
			l.Video.Author.Nickname,
			l.Video.Author.UniqueID,
			string(l.State),
			l.Notes,
			l.AddedAt.Format("1/2/2006"),
			fmt.Sprintf("%d", l.Video.AuthorStats.FollowerCount),
			fmt.Sprintf("%d", l.Video.Stats.DiggCount),
		}
		quoted := make([]string, len(row))
		for i, cell := range row {
			quoted[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(quoted, ","))
	}

	return strings.Join(lines, "\n")
}
