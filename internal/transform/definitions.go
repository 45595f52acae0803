package transform

import (
	"fmt"
	"strings"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/schema"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

// Definition derives the rows of one target table from staging tables.
type Definition struct {
	Target  string
	Columns []string
	// UsesPlayPage reports whether the SELECT filters on the play page.
	UsesPlayPage bool
	selectSQL    func(d warehouse.Dialect) string
}

// Select renders the SELECT for d and its bound arguments.
func (def Definition) Select(d warehouse.Dialect, playPage string) (string, []interface{}) {
	var args []interface{}
	if def.UsesPlayPage {
		args = append(args, playPage)
	}
	return def.selectSQL(d), args
}

// Insert renders the full INSERT-SELECT for d and its bound arguments.
func (def Definition) Insert(d warehouse.Dialect, playPage string) (string, []interface{}, error) {
	target, err := warehouse.Ident(def.Target)
	if err != nil {
		return "", nil, err
	}
	sel, args := def.Select(d, playPage)
	return fmt.Sprintf("INSERT INTO %s (%s)\n%s", target, strings.Join(def.Columns, ", "), sel), args, nil
}

var definitions = []Definition{
	{
		Target:       schema.SongPlays,
		Columns:      []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"},
		UsesPlayPage: true,
		selectSQL: func(d warehouse.Dialect) string {
			return `SELECT DISTINCT ` + d.EpochMillisToTimestamp("se.ts") + ` AS start_time,
       se.userId AS user_id,
       se.level AS level,
       ss.song_id AS song_id,
       ss.artist_id AS artist_id,
       se.sessionId AS session_id,
       se.location AS location,
       se.userAgent AS user_agent
FROM staging_events se
JOIN staging_songs ss ON se.song = ss.title AND se.artist = ss.artist_name
WHERE se.page = ` + d.Placeholder(1)
		},
	},
	{
		Target:       schema.Users,
		Columns:      []string{"user_id", "first_name", "last_name", "gender", "level"},
		UsesPlayPage: true,
		selectSQL: func(d warehouse.Dialect) string {
			return `SELECT DISTINCT userId AS user_id,
       firstName AS first_name,
       lastName AS last_name,
       gender AS gender,
       level AS level
FROM staging_events
WHERE userId IS NOT NULL AND page = ` + d.Placeholder(1)
		},
	},
	{
		Target:  schema.Songs,
		Columns: []string{"song_id", "title", "artist_id", "year", "duration"},
		selectSQL: func(warehouse.Dialect) string {
			return `SELECT DISTINCT ss.song_id AS song_id,
       ss.title AS title,
       ss.artist_id AS artist_id,
       ss.year AS year,
       ss.duration AS duration
FROM staging_songs ss
WHERE ss.song_id IS NOT NULL`
		},
	},
	{
		Target:  schema.Artists,
		Columns: []string{"artist_id", "name", "location", "latitude", "longitude"},
		selectSQL: func(warehouse.Dialect) string {
			return `SELECT DISTINCT ss.artist_id AS artist_id,
       ss.artist_name AS name,
       ss.artist_location AS location,
       CAST(ss.artist_latitude AS DECIMAL) AS latitude,
       CAST(ss.artist_longitude AS DECIMAL) AS longitude
FROM staging_songs ss
WHERE ss.artist_id IS NOT NULL`
		},
	},
	{
		// weekday is the day of week, 0 = Sunday.
		Target:       schema.Time,
		Columns:      []string{"start_time", "hour", "day", "week", "month", "year", "weekday"},
		UsesPlayPage: true,
		selectSQL: func(d warehouse.Dialect) string {
			return `SELECT DISTINCT ev.start_time AS start_time,
       EXTRACT(hour FROM ev.start_time) AS hour,
       EXTRACT(day FROM ev.start_time) AS day,
       EXTRACT(week FROM ev.start_time) AS week,
       EXTRACT(month FROM ev.start_time) AS month,
       EXTRACT(year FROM ev.start_time) AS year,
       ` + d.DayOfWeek("ev.start_time") + ` AS weekday
FROM (
    SELECT ` + d.EpochMillisToTimestamp("se.ts") + ` AS start_time
    FROM staging_events se
    WHERE se.ts IS NOT NULL AND se.page = ` + d.Placeholder(1) + `
) ev`
		},
	},
}

// Definitions returns the transforms in the default load order: the fact
// table first, then the dimensions. The order carries no dependency.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the transform for target.
func Lookup(target string) (Definition, bool) {
	for _, def := range definitions {
		if def.Target == target {
			return def, true
		}
	}
	return Definition{}, false
}

// Targets returns the target table of every definition.
func Targets() []string {
	out := make([]string, len(definitions))
	for i, def := range definitions {
		out[i] = def.Target
	}
	return out
}
