package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Config mirrors the document stored in Nacos, etcd or the local file.
// Durations are given in milliseconds.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr" json:"addr" env:"LOTTO_SERVER_ADDR"`
		LogLevel string `yaml:"log_level" json:"log_level" env:"LOTTO_LOG_LEVEL"`
	} `yaml:"server" json:"server"`

	Database struct {
		Driver       string `yaml:"driver" json:"driver" env:"LOTTO_DB_DRIVER"`
		DSN          string `yaml:"dsn" json:"dsn" env:"LOTTO_DB_DSN"`
		MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns" env:"LOTTO_DB_MAX_OPEN"`
		MaxIdleConns int    `yaml:"max_idle_conns" json:"max_idle_conns" env:"LOTTO_DB_MAX_IDLE"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr        string `yaml:"addr" json:"addr" env:"LOTTO_REDIS_ADDR"`
		Password    string `yaml:"password" json:"password" env:"LOTTO_REDIS_PASSWORD"`
		DB          int    `yaml:"db" json:"db" env:"LOTTO_REDIS_DB"`
		PrizeTTLSec int    `yaml:"prize_ttl_sec" json:"prize_ttl_sec" env:"LOTTO_REDIS_PRIZE_TTL_SEC"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Endpoint  string `yaml:"endpoint" json:"endpoint" env:"LOTTO_MQ_ENDPOINT"`
		AccessKey string `yaml:"access_key" json:"access_key" env:"LOTTO_MQ_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" json:"secret_key" env:"LOTTO_MQ_SECRET_KEY"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Lotto struct {
		TicketPrice     string `yaml:"ticket_price" json:"ticket_price" env:"LOTTO_TICKET_PRICE"`
		DefaultAmount   int    `yaml:"default_amount" json:"default_amount" env:"LOTTO_DEFAULT_AMOUNT"`
		BatchSize       int    `yaml:"batch_size" json:"batch_size" env:"LOTTO_BATCH_SIZE"`
		TxTimeoutMs     int    `yaml:"tx_timeout_ms" json:"tx_timeout_ms" env:"LOTTO_TX_TIMEOUT_MS"`
		DrawLockTTLMs   int    `yaml:"draw_lock_ttl_ms" json:"draw_lock_ttl_ms" env:"LOTTO_DRAW_LOCK_TTL_MS"`
		Operator        string `yaml:"operator" json:"operator" env:"LOTTO_OPERATOR"`
		OutboxPollMs    int    `yaml:"outbox_poll_ms" json:"outbox_poll_ms" env:"LOTTO_OUTBOX_POLL_MS"`
		OutboxBatchSize int    `yaml:"outbox_batch_size" json:"outbox_batch_size" env:"LOTTO_OUTBOX_BATCH_SIZE"`
	} `yaml:"lotto" json:"lotto"`

	Admin struct {
		FullName string `yaml:"full_name" json:"full_name" env:"LOTTO_ADMIN_NAME"`
		Phone    string `yaml:"phone" json:"phone" env:"LOTTO_ADMIN_PHONE"`
		Email    string `yaml:"email" json:"email" env:"LOTTO_ADMIN_EMAIL"`
		Password string `yaml:"password" json:"password" env:"LOTTO_ADMIN_PASSWORD"`
		Balance  string `yaml:"balance" json:"balance" env:"LOTTO_ADMIN_BALANCE"`
	} `yaml:"admin" json:"admin"`

	// Thresholds are business limits read at call time, e.g. max_generate.
	Thresholds map[string]int64 `yaml:"thresholds" json:"thresholds"`
}

// Load reads the config from Nacos, then etcd, then the local file,
// applies LOTTO_* environment overrides and fills defaults.
//
// Environment:
//   - NACOS_SERVER_ADDR, NACOS_DATA_ID, NACOS_NAMESPACE, NACOS_GROUP
//   - ETCD_ENDPOINTS, ETCD_CONFIG_KEY
//   - CONFIG_FILE (default config/dev.yaml)
//
// A missing source is not an error: with nothing found the defaults plus
// environment are used.
func Load(ctx context.Context) (*Config, string, error) {
	cfg, source, err := loadSource(ctx)
	if err != nil {
		return nil, "", err
	}
	if cfg == nil {
		cfg, source = &Config{}, "defaults"
	}
	if err := env.Parse(cfg); err != nil {
		return nil, "", fmt.Errorf("parse env overrides: %w", err)
	}
	cfg.applyDefaults()
	return cfg, source, nil
}

func loadSource(ctx context.Context) (*Config, string, error) {
	var errs []string
	if getEnvOrDefault("NACOS_SERVER_ADDR", "") != "" {
		cfg, err := loadFromNacos(ctx)
		if err == nil {
			return cfg, "nacos", nil
		}
		errs = append(errs, "nacos: "+err.Error())
	}
	if getEnvOrDefault("ETCD_ENDPOINTS", "") != "" {
		cfg, err := loadFromEtcd(ctx)
		if err == nil {
			return cfg, "etcd", nil
		}
		errs = append(errs, "etcd: "+err.Error())
	}

	configFile := getEnvOrDefault("CONFIG_FILE", "config/dev.yaml")
	cfg, err := loadFromFile(configFile)
	switch {
	case err == nil:
		return cfg, "file:" + configFile, nil
	case errors.Is(err, os.ErrNotExist) && len(errs) == 0:
		return nil, "", nil
	case errors.Is(err, os.ErrNotExist):
		return nil, "", fmt.Errorf("no config source available (%s)", strings.Join(errs, "; "))
	default:
		return nil, "", err
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":9090"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "file:lotto.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.PrizeTTLSec <= 0 {
		c.Redis.PrizeTTLSec = 3600
	}
	if c.Lotto.OutboxPollMs <= 0 {
		c.Lotto.OutboxPollMs = 1000
	}
	if c.Lotto.OutboxBatchSize <= 0 {
		c.Lotto.OutboxBatchSize = 100
	}
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is empty")
	}
	return nil
}

func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.Lotto.TxTimeoutMs) * time.Millisecond
}

func (c *Config) DrawLockTTL() time.Duration {
	return time.Duration(c.Lotto.DrawLockTTLMs) * time.Millisecond
}

func (c *Config) OutboxInterval() time.Duration {
	return time.Duration(c.Lotto.OutboxPollMs) * time.Millisecond
}

func (c *Config) PrizeTTL() time.Duration {
	return time.Duration(c.Redis.PrizeTTLSec) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// parse decodes by extension; unknown extensions try YAML then JSON.
func parse(name string, data []byte) (*Config, error) {
	var cfg Config
	switch filepath.Ext(name) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			if err2 := json.Unmarshal(data, &cfg); err2 != nil {
				return nil, fmt.Errorf("parse config (tried YAML and JSON): yaml_err=%v, json_err=%v", err, err2)
			}
		}
	}
	return &cfg, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", filePath, err)
	}
	switch filepath.Ext(filePath) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .json, .yaml, .yml)", filePath)
	}
	return parse(filePath, data)
}

func loadFromEtcd(ctx context.Context) (*Config, error) {
	var endpoints []string
	for _, e := range strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	if len(endpoints) == 0 {
		return nil, errors.New("empty ETCD_ENDPOINTS")
	}
	key := getEnvOrDefault("ETCD_CONFIG_KEY", "")
	if key == "" {
		return nil, errors.New("ETCD_CONFIG_KEY not set")
	}
	dialTimeout := 5 * time.Second
	if sec, err := strconv.Atoi(getEnvOrDefault("ETCD_DIAL_TIMEOUT_SEC", "")); err == nil && sec > 0 {
		dialTimeout = time.Duration(sec) * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect failed: %w", err)
	}
	defer cli.Close()

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := cli.Get(ctx2, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key not found: %s", key)
	}
	return parse(key, resp.Kvs[0].Value)
}

type nacosParams struct {
	servers []constant.ServerConfig
	client  constant.ClientConfig
	dataID  string
	group   string
}

// nacosFromEnv reads NACOS_* variables. NACOS_SERVER_ADDR accepts a comma list of host:port.
func nacosFromEnv() (*nacosParams, error) {
	serverAddr := getEnvOrDefault("NACOS_SERVER_ADDR", "")
	if serverAddr == "" {
		return nil, errors.New("NACOS_SERVER_ADDR not set")
	}
	p := &nacosParams{
		dataID: getEnvOrDefault("NACOS_DATA_ID", ""),
		group:  getEnvOrDefault("NACOS_GROUP", "DEFAULT_GROUP"),
	}
	if p.dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}

	for _, addr := range strings.Split(serverAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s (expected host:port)", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", portStr)
		}
		p.servers = append(p.servers, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(p.servers) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}

	timeoutMS := 5000
	if t, err := strconv.Atoi(getEnvOrDefault("NACOS_TIMEOUT_MS", "")); err == nil && t > 0 {
		timeoutMS = t
	}
	p.client = constant.ClientConfig{
		NamespaceId:         getEnvOrDefault("NACOS_NAMESPACE", "public"),
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              filepath.Join(os.TempDir(), "nacos", "log"),
		CacheDir:            filepath.Join(os.TempDir(), "nacos", "cache"),
		LogLevel:            "warn",
	}
	username, password := getEnvOrDefault("NACOS_USERNAME", ""), getEnvOrDefault("NACOS_PASSWORD", "")
	if username != "" && password != "" {
		p.client.Username, p.client.Password = username, password
	}
	return p, nil
}

func loadFromNacos(_ context.Context) (*Config, error) {
	p, err := nacosFromEnv()
	if err != nil {
		return nil, err
	}
	cli, err := newNacosClient(p)
	if err != nil {
		return nil, err
	}
	content, err := cli.GetConfig(vo.ConfigParam{DataId: p.dataID, Group: p.group})
	if err != nil {
		return nil, fmt.Errorf("get config from nacos: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config is empty: dataId=%s, group=%s", p.dataID, p.group)
	}
	return parse(p.dataID, []byte(content))
}
