/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package matching

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/emergency-ai/decision-core/pkg/domain"
	sharederrors "github.com/emergency-ai/decision-core/pkg/shared/errors"
)

// Team is one standby rescue team row from the registry. Capabilities is
// a Postgres text[] column, scanned through lib/pq's array adapter since
// the pgx stdlib driver doesn't decode arrays into []string on its own.
type Team struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	ResourceType    string         `db:"resource_type"`
	Capabilities    pq.StringArray `db:"capabilities"`
	Latitude        float64        `db:"latitude"`
	Longitude       float64        `db:"longitude"`
	Personnel       int            `db:"personnel"`
	CapabilityLevel int            `db:"capability_level"`
	Status          string         `db:"status"`
}

// Registry is the external team-registry adapter contract. Implementations
// return every standby team with a non-null base location; the matcher
// itself applies the radius filter, distance ordering and team cap so the
// same logic exercises both live and fake registries identically.
type Registry interface {
	StandbyTeams(ctx context.Context) ([]Team, error)
}

// PGRegistry is a jackc/pgx-backed registry reachable through sqlx's
// struct-scanning query helpers.
type PGRegistry struct {
	db *sqlx.DB
}

func NewPGRegistry(db *sqlx.DB) *PGRegistry {
	return &PGRegistry{db: db}
}

const standbyTeamsQuery = `
SELECT id, name, resource_type, capabilities, latitude, longitude, personnel, capability_level, status
FROM rescue_teams
WHERE status = 'standby' AND latitude IS NOT NULL AND longitude IS NOT NULL
`

func (r *PGRegistry) StandbyTeams(ctx context.Context) ([]Team, error) {
	var teams []Team
	if err := r.db.SelectContext(ctx, &teams, standbyTeamsQuery); err != nil {
		return nil, sharederrors.DatabaseError("query standby teams", err)
	}
	return teams, nil
}

// nearbyTeam pairs a registry row with its distance from the event, since
// Team itself carries only a base location, not a query-time distance.
type nearbyTeam struct {
	team     Team
	distance float64
}

// withinRadius filters and orders teams by distance ascending then
// capability_level descending, capped at limit, per §4.5's query contract.
func withinRadius(teams []Team, center domain.Location, radiusKM float64, limit int) []nearbyTeam {
	inRange := make([]nearbyTeam, 0, len(teams))
	for _, t := range teams {
		d := DistanceKM(center.Latitude, center.Longitude, t.Latitude, t.Longitude)
		if d <= radiusKM {
			inRange = append(inRange, nearbyTeam{team: t, distance: d})
		}
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		if inRange[i].distance != inRange[j].distance {
			return inRange[i].distance < inRange[j].distance
		}
		return inRange[i].team.CapabilityLevel > inRange[j].team.CapabilityLevel
	})

	if limit > 0 && len(inRange) > limit {
		inRange = inRange[:limit]
	}
	return inRange
}
