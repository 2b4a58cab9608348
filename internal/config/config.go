// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех сервисов платформы.
// Каждый бинарь читает один и тот же файл и берёт свои секции.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Billing                 `yaml:"billing"`
	Analytics               `yaml:"analytics"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env-default:"50"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env-default:"100"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQ структура для настройки подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQRetries    int           `yaml:"retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP структура для настройки почтового транспорта
type SMTP struct {
	SMTPHost string `yaml:"host"`
	SMTPPort string `yaml:"port" env-default:"587"`
	SMTPUser string `yaml:"user"`
	SMTPPass string `yaml:"pass"`
	SMTPFrom string `yaml:"from"`
}

// Billing структура для настройки планировщика биллинга
type Billing struct {
	BillingInterval   time.Duration `yaml:"interval" env-default:"1h"`
	InvoiceGrace      time.Duration `yaml:"invoice_grace" env-default:"72h"`
	RenewalNoticeDays int           `yaml:"renewal_notice_days" env-default:"3"`
}

// Analytics структура для настройки хранения событий
type Analytics struct {
	RetentionMonths     int           `yaml:"retention_months" env-default:"24"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval" env-default:"24h"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Retries: %d\n"+
			"  RetryDelay: %s\n"+
			"SMTP:\n"+
			"  Host: %s\n"+
			"  Port: %s\n"+
			"  From: %s\n"+
			"Billing:\n"+
			"  Interval: %s\n"+
			"  InvoiceGrace: %s\n"+
			"  RenewalNoticeDays: %d\n"+
			"Analytics:\n"+
			"  RetentionMonths: %d\n"+
			"  MaintenanceInterval: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQURL,
		c.RabbitMQRetries,
		c.RabbitMQRetryDelay,
		c.SMTPHost,
		c.SMTPPort,
		c.SMTPFrom,
		c.BillingInterval,
		c.InvoiceGrace,
		c.RenewalNoticeDays,
		c.RetentionMonths,
		c.MaintenanceInterval,
	)
}
