package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Datex      DatexConfig      `mapstructure:"datex"`
	Twitter    TwitterConfig    `mapstructure:"twitter"`
	Police     PoliceConfig     `mapstructure:"police"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Sync       SyncConfig       `mapstructure:"sync"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type DatexConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	UserAgent string `mapstructure:"user_agent"`
}

type TwitterConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	BearerToken string `mapstructure:"bearer_token"`
	Username    string `mapstructure:"username"`
	PastHours   int    `mapstructure:"past_hours"`
}

type PoliceConfig struct {
	BaseURL    string   `mapstructure:"base_url"`
	Districts  []string `mapstructure:"districts"`
	Categories []string `mapstructure:"categories"`
	Take       int      `mapstructure:"take"`
}

// ClassifierConfig holds the keyword evidence for thread status. The sets
// are data so another locale can be dropped in without a code change.
type ClassifierConfig struct {
	DoneKeywords   []string `mapstructure:"done_keywords"`
	FixingKeywords []string `mapstructure:"fixing_keywords"`
}

type SyncConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("datex.base_url", "https://datex-server-get-v3-1.atlas.vegvesen.no/")
	v.SetDefault("datex.user_agent", "trafikkvarsel")
	v.SetDefault("twitter.base_url", "https://api.twitter.com/2/")
	v.SetDefault("twitter.username", "VTSost")
	v.SetDefault("twitter.past_hours", 24)
	v.SetDefault("police.base_url", "https://api.politiet.no/politiloggen/v1")
	v.SetDefault("police.districts", []string{"Oslo"})
	v.SetDefault("police.categories", []string{"Trafikk"})
	v.SetDefault("police.take", 50)
	v.SetDefault("classifier.done_keywords", DefaultDoneKeywords)
	v.SetDefault("classifier.fixing_keywords", DefaultFixingKeywords)
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.retention", 7*24*time.Hour)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if username := v.GetString("DATEX_USERNAME"); username != "" {
		config.Datex.Username = username
	}
	if password := v.GetString("DATEX_PASSWORD"); password != "" {
		config.Datex.Password = password
	}
	if token := v.GetString("BEARER_TOKEN"); token != "" {
		config.Twitter.BearerToken = token
	}

	return &config, nil
}

// Norwegian keyword evidence used when the config file does not override it.
var (
	// Terms meaning the incident is over: opened, removed, cleared, checked.
	DefaultDoneKeywords = []string{"åpnet", "fjernet", "ryddet", "sjekket"}
	// Terms meaning help is on site or towing is under way.
	DefaultFixingKeywords = []string{"på stedet", "bilberging pågår", "berging pågår"}
)
