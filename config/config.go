package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/quantbed/tickbook/pkg/core"
	"github.com/quantbed/tickbook/pkg/db/queue"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Engine struct {
		Symbol    string `yaml:"symbol"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"engine"`

	Book struct {
		MinPrice       int64  `yaml:"min_price"`
		MaxPrice       int64  `yaml:"max_price"`
		TickSize       int64  `yaml:"tick_size"`
		ArenaCapacity  int    `yaml:"arena_capacity"`
		MaxOrders      int    `yaml:"max_orders"`
		UncheckedArena bool   `yaml:"unchecked_arena"`
		DecimalTick    string `yaml:"decimal_tick"`
		DecimalLot     string `yaml:"decimal_lot"`
	} `yaml:"book"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	symbol     = flag.String("symbol", "TICK-USD", "Instrument symbol")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	config := &Config{}
	config.Engine.Symbol = *symbol
	config.Engine.LogLevel = *logLevel
	config.Engine.LogFormat = *logFormat
	config.Book.MinPrice = 1
	config.Book.MaxPrice = 999999
	config.Book.TickSize = 1
	config.Book.ArenaCapacity = 1024
	config.Book.DecimalTick = "0.01"
	config.Book.DecimalLot = "0.001"
	config.Redis.Addr = "localhost:6379"
	config.Redis.Channel = "tickbook.reports"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "tickbook-reports"

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		log.Printf("Loaded configuration from %s", *configFile)
	}

	// Push broker settings into the queue package variables.
	queue.SetBrokerList([]string{config.Kafka.BrokerAddr})
	queue.SetTopic(config.Kafka.Topic)

	return config, nil
}

// BookOptions converts the book section into core options.
func (c *Config) BookOptions() core.BookOptions {
	return core.BookOptions{
		MinPrice:       c.Book.MinPrice,
		MaxPrice:       c.Book.MaxPrice,
		TickSize:       c.Book.TickSize,
		ArenaCapacity:  c.Book.ArenaCapacity,
		MaxOrders:      c.Book.MaxOrders,
		UncheckedArena: c.Book.UncheckedArena,
	}
}
