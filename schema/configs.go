package schema

// OrgConfig is the organization block of a data repo's config.yaml.
// It is read-only for plugins.
type OrgConfig struct {
	Name        string            `mapstructure:"name" json:"name"`
	Description string            `mapstructure:"description" json:"description"`
	URL         string            `mapstructure:"url" json:"url"`
	LogoURL     string            `mapstructure:"logo_url" json:"logo_url"`
	StartDate   string            `mapstructure:"start_date" json:"start_date,omitempty"`
	Socials     map[string]string `mapstructure:"socials" json:"socials,omitempty"`
}

// PluginSpec configures one plugin instance. Source selects the
// registered plugin; Config is passed through untouched.
type PluginSpec struct {
	Source string         `mapstructure:"source"`
	Config map[string]any `mapstructure:"config"`
}

// LeaderboardConfig is the leaderboard block of config.yaml.
type LeaderboardConfig struct {
	DataSource string                `mapstructure:"data_source"`
	Plugins    map[string]PluginSpec `mapstructure:"plugins"`
}

// Config is the full parsed config.yaml.
type Config struct {
	Org         OrgConfig         `mapstructure:"org"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}
