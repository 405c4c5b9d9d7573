package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	IngestURL      string // URL of the ingestion endpoint receiving snapshots
	SourceURL      string // URL of the simulator frame endpoint
	Interval       string // tick interval of the polling loop
	PublishTimeout string // timeout for the outbound snapshot publish
	StateFile      string // path of the durable stint/usage snapshot
	NatsURL        string // optional NATS server for snapshot publishing
	NatsSubject    string // NATS subject for snapshot publishing
	TuningFile     string // optional YAML tuning profile for the usage estimator
	WaitForIngest  string // duration to wait for the ingest endpoint at startup
	LogLevel       string // sets the log level (zap log level values)
	LogFormat      string // text vs json
	LogFilter      string // zapfilter rules applied to the logger
	ReplayFile     string // JSONL frame recording used by the replay command
	ReplaySpeed    float64 // replay speed factor (1.0 = recorded pace)
)
