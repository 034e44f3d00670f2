package output

// CardOutput is the JSON form of one dashboard card.
type CardOutput struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
	Query       any     `json:"query"`
}

// DashboardOutput is the JSON form of a generated or stored dashboard.
type DashboardOutput struct {
	ID          string       `json:"id,omitempty"`
	TableID     int64        `json:"table_id"`
	Table       string       `json:"table,omitempty"`
	Rule        string       `json:"rule,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Cards       []CardOutput `json:"cards"`
	Error       string       `json:"error,omitempty"`
}

// GenerateOutput is the JSON form of the generate command.
type GenerateOutput struct {
	DryRun     bool              `json:"dry_run"`
	Dashboards []DashboardOutput `json:"dashboards"`
	Failed     int               `json:"failed"`
}

// SyncOutput is the JSON form of the sync command.
type SyncOutput struct {
	Database           string `json:"database"`
	DatabaseID         int64  `json:"database_id"`
	Engine             string `json:"engine"`
	Schema             string `json:"schema"`
	Tables             int    `json:"tables"`
	Fields             int    `json:"fields"`
	ForeignKeys        int    `json:"foreign_keys"`
	SkippedForeignKeys int    `json:"skipped_foreign_keys"`
}

// GraphTable is one table of a schema graph.
type GraphTable struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	EntityType string  `json:"entity_type"`
	Root       bool    `json:"root"`
	Links      []int64 `json:"links,omitempty"`
	Fields     int     `json:"fields"`
}

// GraphOutput is the JSON form of the graph command.
type GraphOutput struct {
	Root   int64        `json:"root"`
	Rule   string       `json:"rule,omitempty"`
	Tables []GraphTable `json:"tables"`
}

// RuleOutput summarises one rule.
type RuleOutput struct {
	Name       string `json:"name"`
	TableType  string `json:"table_type"`
	Extends    string `json:"extends,omitempty"`
	Title      string `json:"title,omitempty"`
	Dimensions int    `json:"dimensions"`
	Metrics    int    `json:"metrics"`
	Filters    int    `json:"filters"`
	Cards      int    `json:"cards"`
}

// DashboardSummary is one row of the dashboards listing.
type DashboardSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Rule      string `json:"rule"`
	TableID   int64  `json:"table_id"`
	Cards     int    `json:"cards"`
	CreatedAt string `json:"created_at"`
}
