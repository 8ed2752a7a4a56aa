package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "PEDIDOS_CONFIG_FILE"

type sources struct {
	CatalogCSVURL string `mapstructure:"catalog_csv_url"`
	PolicySource  string `mapstructure:"policy_source"`
	StockSyncURL  string `mapstructure:"stock_sync_url"`
}

type emailjs struct {
	URL        string `mapstructure:"url"`
	ServiceID  string `mapstructure:"service_id"`
	TemplateID string `mapstructure:"template_id"`
	PublicKey  string `mapstructure:"public_key"`
}

type broker struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	OrderEventsTopic   string   `mapstructure:"order_events_topic"`
}

type Config struct {
	LogLevel       slog.Level `mapstructure:"log_level"`
	HTTPServerAddr string     `mapstructure:"http_server_addr"`
	PageSize       int        `mapstructure:"page_size"`
	SQLDB          string     `mapstructure:"sql_db"`
	Sources        sources    `mapstructure:"sources"`
	EmailJS        emailjs    `mapstructure:"emailjs"`
	Broker         broker     `mapstructure:"broker"`
}

func Load() Config {
	viper.SetDefault("page_size", 15)
	viper.SetConfigFile(getConfigFilepath())

	err := viper.ReadInConfig()
	if err != nil {
		die(err)
	}

	var cfg Config
	err = viper.UnmarshalExact(&cfg)
	if err != nil {
		die(err)
	}

	return cfg
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	PageSize=%d
	SQLDB=%q

	Sources:
	CatalogCSVURL=%q
	PolicySource=%q
	StockSyncURL=%q

	EmailJS:
	URL=%q
	ServiceID=%q
	TemplateID=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	OrderEventsTopic=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.PageSize,
		c.SQLDB,
		c.Sources.CatalogCSVURL,
		c.Sources.PolicySource,
		c.Sources.StockSyncURL,
		c.EmailJS.URL,
		c.EmailJS.ServiceID,
		c.EmailJS.TemplateID,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.OrderEventsTopic,
	)
}
