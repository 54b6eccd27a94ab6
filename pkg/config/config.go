package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                    string // connection string for the database
	WaitForServices       string // duration to wait for other services to be ready
	LogLevel              string // sets the log level (zap log level values)
	SQLLogLevel           string // sets the log level for sql subsystem
	LogFormat             string // text vs json
	LogConfig             string // path to log config file
	MigrationSourceURL    string // location of migration files, empty means embedded
	EnableTelemetry       bool   // enable telemetry
	TelemetryEndpoint     string // endpoint for telemetry ("stdout" prints to console)
	ProfilingPort         int    // port for profiling
	ServerAddr            string // listen addr for the REST server
	Season                int    // championship season used for standings, 0 means current year
	StandingsURL          string // base url of the standings provider
	StandingsAPIKey       string // api key for the standings provider
	StandingsAPIKeyHeader string // header carrying the api key
	StandingsTimeout      string // timeout for standings requests, 0 disables it
	EnforceRosterRules    bool   // if true, roster rules are checked when a team is created
	NatsURL               string // if set, creation events are published to NATS
)
