package model

type SessionType string

const (
	SessionRace     SessionType = "RACE"
	SessionQualy    SessionType = "QUALY"
	SessionPractice SessionType = "PRACTICE"
	SessionWarmup   SessionType = "WARMUP"
	SessionUnknown  SessionType = "-"
)

// Snapshot is the consolidated payload pushed to the ingestion endpoint
// once per tick.
type Snapshot struct {
	Connected    bool        `json:"connected"`
	Timestamp    float64     `json:"timestamp"`
	SessionType  string      `json:"session_type"`
	TrackName    string      `json:"track_name"`
	SessionTimer string      `json:"session_timer"`
	Weather      Weather     `json:"weather"`
	MyCar        MyCar       `json:"my_car"`
	Grid         []GridEntry `json:"grid"`
	UsagePercent *int        `json:"usage_percent"`
	UsageLabel   string      `json:"usage_label"`
	UsageDebug   *UsageDebug `json:"usage_debug,omitempty"`
	FuelNeeded   *float64    `json:"fuel_needed"`
}

type Weather struct {
	Air    float64 `json:"air"`
	Track  float64 `json:"track"`
	Rain   int     `json:"rain"`
	Status string  `json:"status"`
}

type MyCar struct {
	Fuel       float64  `json:"fuel"`
	Strat      string   `json:"strat"`
	Incidents  int      `json:"incidents"`
	IncLimit   int      `json:"inc_limit"`
	FuelNeeded *float64 `json:"fuel_needed"`
}

// GridEntry is one row of the ranked car table. Rebuilt every tick,
// never persisted.
type GridEntry struct {
	Pos        int     `json:"pos"`
	Name       string  `json:"name"`
	Num        string  `json:"num"`
	IsMe       bool    `json:"is_me"`
	ClassName  string  `json:"c_name"`
	CarLogo    string  `json:"car_logo"`
	Flag       string  `json:"flag"`
	LastLap    string  `json:"last_lap"`
	BestLap    string  `json:"best_lap"`
	Gap        string  `json:"gap"`
	Interval   string  `json:"int"`
	SortVal    float64 `json:"sort_val"`
	Stint      string  `json:"s1"`
	StintPrev  string  `json:"s2"`
	StintPrev2 string  `json:"s3"`
	StratTxt   string  `json:"strat_txt"`
	StratCls   string  `json:"strat_cls"`
}

// UsageDebug mirrors the internal usage estimator signals so that consumers
// can inspect the estimation while tuning.
type UsageDebug struct {
	Delta             float64     `json:"delta"`
	CumulativeCarLaps float64     `json:"cumulative_car_laps"`
	LapsPerMinTotal   float64     `json:"laps_per_min_total"`
	RawPercentHistory float64     `json:"raw_percent_history_based"`
	RawPercentRate    float64     `json:"raw_percent_rate_based"`
	CombinedRaw       float64     `json:"combined_raw"`
	EmaUsage          float64     `json:"ema_usage"`
	ComputedPercent   int         `json:"computed_usage_percent"`
	Tuning            UsageTuning `json:"tuning"`
}

type UsageTuning struct {
	ActivityGain float64    `json:"K_activity"`
	Tau          float64    `json:"TAU"`
	RateScale    float64    `json:"alt_scale"`
	Weights      [2]float64 `json:"weights"`
}
