package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "gasra-notifier/common/config"

	"gopkg.in/yaml.v3"
)

// Config gasra-notifier 配置
// 由 Load() 一次性构建并校验，再显式传入各 handler
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database commoncfg.DatabaseConfig `yaml:"-"`
	Firebase FirebaseConfig           `yaml:"firebase"`
	Redis    RedisConfig              `yaml:"redis"`
	MQTT     MQTTConfig               `yaml:"mqtt"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// FirebaseConfig 推送网关与服务账号配置
// TokenURL 为身份提供方 token 交换地址，BaseURL 为推送网关地址
type FirebaseConfig struct {
	ClientEmail string        `yaml:"-"`
	PrivateKey  string        `yaml:"-"`
	ProjectID   string        `yaml:"project_id"`
	TokenURL    string        `yaml:"token_url"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RedisConfig Redis 配置（投递去重 + 投递记录 stream，默认禁用）
type RedisConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"-"`
	DB                int           `yaml:"db"`
	DeliveryStream    string        `yaml:"delivery_stream"`
	DeliveryStreamMax int64         `yaml:"delivery_stream_max"`
	GuardTTL          time.Duration `yaml:"guard_ttl"`
}

// MQTTConfig MQTT 触发入口配置（默认禁用）
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"-"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// 必填环境变量
const (
	EnvDatabaseURL         = "DATABASE_URL"
	EnvDatabasePassword    = "DATABASE_PASSWORD"
	EnvFirebaseClientEmail = "FIREBASE_CLIENT_EMAIL"
	EnvFirebasePrivateKey  = "FIREBASE_PRIVATE_KEY"
	EnvFirebaseProjectID   = "FIREBASE_PROJECT_ID"

	EnvConfigFile = "NOTIFIER_CONFIG_FILE"
)

// Load 加载配置：默认值 -> YAML 文件（可选）-> 环境变量，最后校验
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.Firebase.TokenURL = "https://oauth2.googleapis.com/token"
	cfg.Firebase.BaseURL = "https://fcm.googleapis.com"
	cfg.Firebase.Timeout = 10 * time.Second
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DeliveryStream = "notifier:deliveries"
	cfg.Redis.DeliveryStreamMax = 10000
	cfg.Redis.GuardTTL = 24 * time.Hour
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "gasra-notifier"
	cfg.MQTT.TopicPrefix = "gasra/triggers"
	cfg.MQTT.QoS = 1
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)

	c.Database.URL = os.Getenv(EnvDatabaseURL)
	c.Database.Password = os.Getenv(EnvDatabasePassword)
	c.Database.MaxConns = parseInt(os.Getenv("DB_MAX_CONNS"), 10)
	c.Database.MaxIdle = parseInt(os.Getenv("DB_MAX_IDLE"), 2)

	c.Firebase.ClientEmail = os.Getenv(EnvFirebaseClientEmail)
	c.Firebase.PrivateKey = os.Getenv(EnvFirebasePrivateKey)
	c.Firebase.ProjectID = getEnv(EnvFirebaseProjectID, c.Firebase.ProjectID)
	c.Firebase.TokenURL = getEnv("GOOGLE_TOKEN_URL", c.Firebase.TokenURL)
	c.Firebase.BaseURL = getEnv("FCM_BASE_URL", c.Firebase.BaseURL)
	c.Firebase.Timeout = parseDuration(os.Getenv("FCM_TIMEOUT"), c.Firebase.Timeout)

	c.Redis.Enabled = parseBool(os.Getenv("REDIS_ENABLED"), c.Redis.Enabled)
	redisCfg := commoncfg.RedisConfig{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB}
	redisCfg.LoadFromEnv("REDIS")
	c.Redis.Addr, c.Redis.Password, c.Redis.DB = redisCfg.Addr, redisCfg.Password, redisCfg.DB
	c.Redis.DeliveryStream = getEnv("DELIVERY_STREAM", c.Redis.DeliveryStream)
	c.Redis.DeliveryStreamMax = int64(parseInt(os.Getenv("DELIVERY_STREAM_MAX"), int(c.Redis.DeliveryStreamMax)))
	c.Redis.GuardTTL = parseDuration(os.Getenv("DELIVERY_GUARD_TTL"), c.Redis.GuardTTL)

	c.MQTT.Enabled = parseBool(os.Getenv("MQTT_ENABLED"), c.MQTT.Enabled)
	mqttCfg := c.MQTT.Common()
	mqttCfg.LoadFromEnv("MQTT")
	c.MQTT.Broker, c.MQTT.ClientID = mqttCfg.Broker, mqttCfg.ClientID
	c.MQTT.Username, c.MQTT.Password, c.MQTT.QoS = mqttCfg.Username, mqttCfg.Password, mqttCfg.QoS
	c.MQTT.TopicPrefix = strings.TrimSuffix(getEnv("MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix), "/")

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// LoadFirebase 只加载并校验推送相关配置（运维工具使用，不要求数据库配置）
func LoadFirebase() (*FirebaseConfig, error) {
	cfg := defaults()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := requireKeys(cfg.firebaseKeys()); err != nil {
		return nil, err
	}
	return &cfg.Firebase, nil
}

type requiredKey struct {
	key   string
	value string
}

func (c *Config) firebaseKeys() []requiredKey {
	return []requiredKey{
		{EnvFirebaseClientEmail, c.Firebase.ClientEmail},
		{EnvFirebasePrivateKey, c.Firebase.PrivateKey},
		{EnvFirebaseProjectID, c.Firebase.ProjectID},
	}
}

// Validate 校验必填项，一次性列出所有缺失的 key
func (c *Config) Validate() error {
	required := []requiredKey{
		{EnvDatabaseURL, c.Database.URL},
		{EnvDatabasePassword, c.Database.Password},
	}
	return requireKeys(append(required, c.firebaseKeys()...))
}

func requireKeys(required []requiredKey) error {
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Common 转换为 common/config 的 MQTT 配置
func (m MQTTConfig) Common() commoncfg.MQTTConfig {
	return commoncfg.MQTTConfig{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		QoS:      m.QoS,
	}
}

// CommonRedis 转换为 common/config 的 Redis 配置
func (r RedisConfig) CommonRedis() commoncfg.RedisConfig {
	return commoncfg.RedisConfig{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
