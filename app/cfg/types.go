package cfg

type Cfg struct {
	// Ad hoc source overrides (bypass the sources file when set)
	Subreddits []string
	Hours      int
	TopN       int
	Comments   bool

	// Application configuration
	SourcesFile string
	OutputDir   string
	CacheDB     string
	WorkerCount int
	NoUpload    bool

	// Fetch configuration
	MaxAttempts       int
	RequestsPerMinute int

	// Reddit credentials
	RedditClientID     string
	RedditClientSecret string

	// Serve mode
	Serve             bool
	Port              string
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
