package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything a CM client process reads from its environment.
type Config struct {
	CMAddr   string // fixed CM endpoint; empty means use the server list
	Protocol string // tcp|websocket
	Universe uint32

	MaxNestingDepth int
	MaxFrameSize    int
	MaxUnzippedSize int

	SendRate       float64 // packets per second, 0 disables limiting
	SendBurst      int
	SendBuffer     int
	ConnectTimeout time.Duration

	MetricsAddr    string
	RedisAddr      string
	RedisStream    string
	EtcdEndpoints  []string
	GameServerApp  uint32
	GameServerAuth string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	protocol := strings.ToLower(getEnv("STEAMKIT_PROTOCOL", "tcp"))
	if protocol != "tcp" && protocol != "websocket" {
		protocol = "tcp"
	}
	timeout, err := time.ParseDuration(getEnv("STEAMKIT_CONNECT_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Config{
		CMAddr:          os.Getenv("STEAMKIT_CM_ADDR"),
		Protocol:        protocol,
		Universe:        uint32(getInt("STEAMKIT_UNIVERSE", 1)),
		MaxNestingDepth: getInt("STEAMKIT_MAX_NESTING", 8),
		MaxFrameSize:    getInt("STEAMKIT_MAX_FRAME", 16<<20),
		MaxUnzippedSize: getInt("STEAMKIT_MAX_UNZIPPED", 64<<20),
		SendRate:        getFloat("STEAMKIT_SEND_RATE", 50),
		SendBurst:       getInt("STEAMKIT_SEND_BURST", 20),
		SendBuffer:      getInt("STEAMKIT_SEND_BUFFER", 256),
		ConnectTimeout:  timeout,
		MetricsAddr:     os.Getenv("STEAMKIT_METRICS_ADDR"),
		RedisAddr:       os.Getenv("STEAMKIT_REDIS_ADDR"),
		RedisStream:     getEnv("STEAMKIT_REDIS_STREAM", "steamkit:callbacks"),
		EtcdEndpoints:   getList("STEAMKIT_ETCD_ENDPOINTS"),
		GameServerApp:   uint32(getInt("STEAMKIT_GS_APPID", 0)),
		GameServerAuth:  os.Getenv("STEAMKIT_GS_TOKEN"),
	}
}
