package entity

type Config struct {
	HTTPPort string `yaml:"httpPort"`
	// Base URL of the WordPress REST API, e.g. https://example.com/wp-json/wp/v2.
	APIBaseURL string `yaml:"apiBaseUrl"`
	// Posts requested per upstream page. WordPress caps this at 100.
	PerPage         int    `yaml:"perPage"`
	CacheTTLMinutes int    `yaml:"cacheTtlMinutes"`
	RedisAddr       string `yaml:"redisAddr"`
	DateLocale      string `yaml:"dateLocale"`
	PurgeToken      string `yaml:"purgeToken"`

	CORSOrigins []string    `yaml:"corsOrigins"`
	Image       ImageConfig `yaml:"image"`
	Site        SiteConfig  `yaml:"site"`

	// CategoryAliases maps legacy or alternate slugs to the canonical CMS slug.
	CategoryAliases map[string]string `yaml:"categoryAliases"`
}

type ImageConfig struct {
	Width       int    `yaml:"width"`
	Quality     int    `yaml:"quality"`
	Placeholder string `yaml:"placeholder"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
}
