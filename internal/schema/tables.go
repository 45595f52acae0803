package schema

// Table names.
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	SongPlays     = "songplays"
	Users         = "users"
	Songs         = "songs"
	Artists       = "artists"
	Time          = "time"
)

func col(name, typ string) Column { return Column{Name: name, Type: typ} }

func notNull(name, typ string) Column { return Column{Name: name, Type: typ, NotNull: true} }

var tables = []Table{
	{
		Name: StagingEvents,
		Kind: KindStaging,
		Columns: []Column{
			{Name: "event_id", Type: "BIGINT", NotNull: true, Identity: true},
			col("artist", "VARCHAR"),
			col("auth", "VARCHAR"),
			col("firstName", "VARCHAR"),
			col("gender", "VARCHAR"),
			col("itemInSession", "VARCHAR"),
			col("lastName", "VARCHAR"),
			col("length", "VARCHAR"),
			col("level", "VARCHAR"),
			col("location", "VARCHAR"),
			col("method", "VARCHAR"),
			col("page", "VARCHAR"),
			col("registration", "VARCHAR"),
			{Name: "sessionId", Type: "INTEGER", NotNull: true, SortKey: true, DistKey: true},
			col("song", "VARCHAR"),
			col("status", "INTEGER"),
			notNull("ts", "BIGINT"),
			col("userAgent", "VARCHAR"),
			col("userId", "INTEGER"),
		},
	},
	{
		Name: StagingSongs,
		Kind: KindStaging,
		Columns: []Column{
			col("num_songs", "INT"),
			{Name: "artist_id", Type: "VARCHAR", NotNull: true, SortKey: true, DistKey: true},
			col("artist_latitude", "VARCHAR"),
			col("artist_longitude", "VARCHAR"),
			col("artist_location", "VARCHAR"),
			col("artist_name", "VARCHAR"),
			notNull("song_id", "VARCHAR"),
			col("title", "VARCHAR"),
			col("duration", "DECIMAL"),
			col("year", "INT"),
		},
	},
	{
		Name: SongPlays,
		Kind: KindFact,
		Columns: []Column{
			{Name: "songplay_id", Type: "INT", NotNull: true, Identity: true, SortKey: true, PrimaryKey: true},
			notNull("start_time", "TIMESTAMP"),
			{Name: "user_id", Type: "VARCHAR", NotNull: true, DistKey: true},
			notNull("level", "VARCHAR"),
			notNull("song_id", "VARCHAR"),
			notNull("artist_id", "VARCHAR"),
			notNull("session_id", "VARCHAR"),
			col("location", "VARCHAR"),
			col("user_agent", "VARCHAR"),
		},
	},
	{
		Name: Users,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "user_id", Type: "INT", NotNull: true, SortKey: true, PrimaryKey: true},
			col("first_name", "VARCHAR"),
			col("last_name", "VARCHAR"),
			col("gender", "VARCHAR"),
			col("level", "VARCHAR"),
		},
	},
	{
		Name: Songs,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "song_id", Type: "VARCHAR", NotNull: true, SortKey: true, PrimaryKey: true},
			notNull("title", "VARCHAR"),
			notNull("artist_id", "VARCHAR"),
			notNull("year", "INT"),
			notNull("duration", "DECIMAL"),
		},
	},
	{
		Name: Artists,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "artist_id", Type: "VARCHAR", NotNull: true, SortKey: true, PrimaryKey: true},
			col("name", "VARCHAR"),
			col("location", "VARCHAR"),
			col("latitude", "DECIMAL"),
			col("longitude", "DECIMAL"),
		},
	},
	{
		Name: Time,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "start_time", Type: "TIMESTAMP", NotNull: true, SortKey: true, PrimaryKey: true},
			col("hour", "SMALLINT"),
			col("day", "SMALLINT"),
			col("week", "SMALLINT"),
			col("month", "SMALLINT"),
			col("year", "SMALLINT"),
			col("weekday", "SMALLINT"),
		},
	},
}

// All returns every table in declaration order: staging tables, then the
// fact table, then the dimensions.
func All() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

// Staging returns the staging tables.
func Staging() []Table {
	return filter(func(t Table) bool { return t.Kind == KindStaging })
}

// Warehouse returns the fact and dimension tables.
func Warehouse() []Table {
	return filter(func(t Table) bool { return t.Kind != KindStaging })
}

// Lookup returns the declared table called name.
func Lookup(name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Names returns the names of tables.
func Names(ts []Table) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}

func filter(keep func(Table) bool) []Table {
	var out []Table
	for _, t := range tables {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
