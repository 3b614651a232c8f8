package scoring

import (
	"sort"

	"github.com/google/uuid"
)

// RankEntry is one row of a project ranking.
type RankEntry struct {
	Position     int                 `json:"position"`
	ProjectID    uuid.UUID           `json:"project_id"`
	Name         string              `json:"name"`
	BuildingType BuildingType        `json:"building_type"`
	BuildingCode string              `json:"building_code,omitempty"`
	Status       ProjectStatus       `json:"status"`
	Total        float64             `json:"total"`
	Score        *ProjectScoreResult `json:"score,omitempty"`
}

// RankProjects orders scored projects by total score, highest first. Ties
// break on name, then id. DRAFT projects carry no trusted score and are
// skipped.
func RankProjects(projects []*Project) []RankEntry {
	var entries []RankEntry
	for _, p := range projects {
		if p == nil || p.Score == nil || p.Status == StatusDraft {
			continue
		}
		entries = append(entries, RankEntry{
			ProjectID:    p.ID,
			Name:         p.Name,
			BuildingType: p.BuildingType,
			BuildingCode: p.BuildingCode,
			Status:       p.Status,
			Total:        p.Score.Total,
			Score:        p.Score,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ProjectID.String() < entries[j].ProjectID.String()
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
