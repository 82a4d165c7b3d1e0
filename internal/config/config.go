package config

import (
	"os"
	"strconv"
	"time"
)

// 默认值与参考部署保持一致
const (
	DefaultHost = "localhost"
	DefaultPort = 8745
)

type Config struct {
	Host        string        // 监听/连接的主机
	Port        int           // 监听/连接的端口
	LogLevel    string        // 日志级别
	MetricsAddr string        // 指标 HTTP 地址，空表示不启用
	ReadBuffer  int           // 单次接收的最大字节数
	ChatTimeout time.Duration // 发送聊天回复后的接收超时
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	port, err := strconv.Atoi(getEnv("SIMP_PORT", strconv.Itoa(DefaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		port = DefaultPort
	}
	readBuf, err := strconv.Atoi(getEnv("SIMP_READ_BUFFER", "1024"))
	if err != nil || readBuf <= 0 {
		readBuf = 1024
	}
	chatTimeout, err := time.ParseDuration(getEnv("SIMP_CHAT_TIMEOUT", "5s"))
	if err != nil || chatTimeout <= 0 {
		chatTimeout = 5 * time.Second
	}
	return &Config{
		Host:        getEnv("SIMP_HOST", DefaultHost),
		Port:        port,
		LogLevel:    getEnv("SIMP_LOG_LEVEL", "info"),
		MetricsAddr: getEnv("SIMP_METRICS_ADDR", ""),
		ReadBuffer:  readBuf,
		ChatTimeout: chatTimeout,
	}
}
