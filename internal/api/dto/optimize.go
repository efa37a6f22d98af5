package dto

// Stream event types emitted on the /optimize NDJSON response.
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// ProgressEvent reports per-stage pipeline progress while a request is
// being processed.
type ProgressEvent struct {
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Address string `json:"address,omitempty"`
}

type ResultEvent struct {
	Type string     `json:"type"`
	Data ResultData `json:"data"`
}

type ErrorEvent struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

type ResultData struct {
	Stores      []VisitStopResponse `json:"stores"`
	Summary     SummaryResponse     `json:"summary"`
	CSVDownload string              `json:"csv_download"`
}

type VisitStopResponse struct {
	VisitOrder int      `json:"visit_order"`
	Day        int      `json:"day"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	LegMeters  float64  `json:"leg_distance_m"`
	Revenue    *float64 `json:"revenue,omitempty"`
	URL        string   `json:"url,omitempty"`
}

type PointResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type BaseCommuteResponse struct {
	ToFirstMeters   float64 `json:"to_first_m"`
	FromLastMeters  float64 `json:"from_last_m"`
	IncludeFromLast bool    `json:"include_from_last"`
}

type SummaryResponse struct {
	TotalMeters     float64              `json:"total_distance_m"`
	AvgLegMeters    float64              `json:"avg_leg_m"`
	MaxLegMeters    float64              `json:"max_leg_m"`
	MinLegMeters    float64              `json:"min_leg_m"`
	NumDays         int                  `json:"num_days"`
	TotalStores     int                  `json:"total_stores"`
	FailedGeocoding []string             `json:"failed_geocoding"`
	JourneyMode     string               `json:"journey_mode"`
	StartAddress    string               `json:"start_address,omitempty"`
	StartPoint      *PointResponse       `json:"start_point,omitempty"`
	BaseCommute     *BaseCommuteResponse `json:"base_commute,omitempty"`
}
