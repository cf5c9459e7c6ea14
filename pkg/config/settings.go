package config

import (
	"fmt"
	"time"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DatabaseConfig 关系库连接配置，driver 支持 mysql / postgres
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DbName   string `mapstructure:"dbname" json:"dbname"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
	LogLevel string `mapstructure:"logLevel" json:"logLevel"`
	MaxOpen  int    `mapstructure:"maxOpen" json:"maxOpen"`
	MaxIdle  int    `mapstructure:"maxIdle" json:"maxIdle"`

	// SlowThreshold 慢查询阈值
	SlowThreshold time.Duration `mapstructure:"slowThreshold" json:"slowThreshold"`
}

// DSN 根据驱动拼接连接串
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.DbName, sslMode)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DbName)
	}
}

type RedisConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	PassWord string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MongoDB 可选，link 为空时不启用抓取批次归档
type MongoDB struct {
	Link     string `mapstructure:"link" json:"link"`
	Database string `mapstructure:"database" json:"database"`
}

func (m MongoDB) Enabled() bool {
	return m.Link != ""
}
