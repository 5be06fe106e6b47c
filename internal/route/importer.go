package route

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// exportedRoute is one entry of the console's store export.
type exportedRoute struct {
	Name      string                    `json:"name"`
	CreatedAt string                    `json:"createdAt"`
	Moves     map[string]map[string]any `json:"moves"`
}

// ParseExport reads the recording console's route export:
//
//	{"<route-id>": {"name": "...", "createdAt": "...", "moves": {"<move-id>": {...}}}}
//
// Move IDs are push keys, which sort in creation order, so moves are
// ordered by key. Field values are coerced weakly ("3" and 3.0 both read as
// 3). Routes are returned sorted by ID and are not validated; callers pass
// them through Registry.CreateRoute.
func ParseExport(r io.Reader) ([]Route, error) {
	var export map[string]exportedRoute
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding route export: %w", err)
	}

	ids := make([]string, 0, len(export))
	for id := range export {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	routes := make([]Route, 0, len(ids))
	for _, id := range ids {
		entry := export[id]

		rt := Route{
			ID:    id,
			Name:  strings.TrimSpace(entry.Name),
			Moves: make([]Move, 0, len(entry.Moves)),
		}
		if t, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
			rt.CreatedAt = t.UTC()
		}

		moveIDs := make([]string, 0, len(entry.Moves))
		for moveID := range entry.Moves {
			moveIDs = append(moveIDs, moveID)
		}
		sort.Strings(moveIDs)

		for _, moveID := range moveIDs {
			var rec moveRecord
			if err := mapstructure.WeakDecode(entry.Moves[moveID], &rec); err != nil {
				return nil, fmt.Errorf("route %s move %s: %w", id, moveID, err)
			}
			rt.Moves = append(rt.Moves, rec.toMove())
		}

		routes = append(routes, rt)
	}
	return routes, nil
}
