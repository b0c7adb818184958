package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/davidschrooten/index-bootstrap/internal/document"
)

// Engine types
const (
	EngineSolr  = "solr"
	EngineBleve = "bleve"
)

// Source types
const (
	SourceFile    = "file"
	SourceMongoDB = "mongodb"
)

// Config represents the application configuration
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Solr      SolrConfig      `mapstructure:"solr"`
	Bleve     BleveConfig     `mapstructure:"bleve"`
	Source    SourceConfig    `mapstructure:"source"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Indexing  IndexingConfig  `mapstructure:"indexing"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// EngineConfig selects the search engine and the core to bootstrap
type EngineConfig struct {
	Type      string `mapstructure:"type"`       // solr or bleve
	Core      string `mapstructure:"core"`       // Name of the core to (re)create
	ConfigSet string `mapstructure:"config_set"` // Config set the core is created from
}

// SolrConfig contains Solr connection settings
type SolrConfig struct {
	URL      string `mapstructure:"url"` // Base URL, e.g. http://solr:8983/solr
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"`   // in seconds
	RetryMax int    `mapstructure:"retry_max"` // Retries on connection errors and 5xx responses
}

// BleveConfig contains settings for the embedded engine
type BleveConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

// SourceConfig selects where documents are read from
type SourceConfig struct {
	Type string `mapstructure:"type"` // file or mongodb
	Path string `mapstructure:"path"` // JSON file of id -> document
}

// MongoDBConfig contains MongoDB connection settings
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	IDField    string `mapstructure:"id_field"` // Field used as the document id (defaults to "_id")
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Timeout    int    `mapstructure:"timeout"` // in seconds
}

// NormalizeConfig controls document normalization
type NormalizeConfig struct {
	Nested      bool            `mapstructure:"nested"`       // Parent/child indexing instead of flattening
	ExactFields []string        `mapstructure:"exact_fields"` // Fields copied to <field>.exact
	Rules       []document.Rule `mapstructure:"rules"`        // Subfield projections; defaults apply when empty
}

// SchemaConfig controls schema reconciliation
type SchemaConfig struct {
	Path      string `mapstructure:"path"`      // YAML definitions; built-in definitions when empty
	Suggester bool   `mapstructure:"suggester"` // Recreate the autosuggest component
}

// IndexingConfig controls document submission and run bookkeeping
type IndexingConfig struct {
	BatchSize int    `mapstructure:"batch_size"` // Documents per update request, 0 for a single request
	StatePath string `mapstructure:"state_path"` // Path to store the state of the last runs
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// LoadConfig loads configuration from file and environment variables. When no
// path is given and no config file is found in the default locations, the
// defaults and environment are used on their own.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/index-bootstrap")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("IXB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("engine.type", EngineSolr)
	viper.SetDefault("engine.core", "tmdb")
	viper.SetDefault("engine.config_set", "_default")
	viper.SetDefault("solr.url", "http://solr:8983/solr")
	viper.SetDefault("solr.timeout", 30)
	viper.SetDefault("solr.retry_max", 2)
	viper.SetDefault("bleve.index_path", "./indexes")
	viper.SetDefault("source.type", SourceFile)
	viper.SetDefault("source.path", "tmdb.json")
	viper.SetDefault("mongodb.timeout", 30)
	viper.SetDefault("mongodb.id_field", "_id")
	viper.SetDefault("normalize.nested", false)
	viper.SetDefault("normalize.exact_fields", []string{"title"})
	viper.SetDefault("schema.suggester", true)
	viper.SetDefault("indexing.batch_size", 1000)
	viper.SetDefault("indexing.state_path", "./bootstrap_state.json")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	switch c.Engine.Type {
	case EngineSolr, EngineBleve:
	default:
		return fmt.Errorf("unknown engine type %q", c.Engine.Type)
	}
	if c.Engine.Core == "" {
		return errors.New("engine.core is required")
	}

	switch c.Source.Type {
	case SourceFile:
		if c.Source.Path == "" {
			return errors.New("source.path is required for file sources")
		}
	case SourceMongoDB:
		if c.MongoDB.Collection == "" {
			return errors.New("mongodb.collection is required for mongodb sources")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	if c.Indexing.BatchSize < 0 {
		return errors.New("indexing.batch_size must not be negative")
	}
	return nil
}

// Options returns the normalizer options. Without configured rules the
// built-in movie rules are used.
func (c *NormalizeConfig) Options() document.Options {
	opts := document.DefaultOptions()
	if len(c.Rules) > 0 {
		opts.Rules = c.Rules
	}
	if c.ExactFields != nil {
		opts.ExactFields = c.ExactFields
	}
	opts.Nested = c.Nested
	return opts
}

// GetMongoURI returns the complete MongoDB connection URI
func (c *MongoDBConfig) GetMongoURI() string {
	if c.URI != "" {
		return c.URI
	}

	// Build URI from components if not provided directly
	uri := "mongodb://"
	if c.Username != "" && c.Password != "" {
		uri += fmt.Sprintf("%s:%s@", c.Username, c.Password)
	}
	uri += "localhost:27017"
	return uri
}
