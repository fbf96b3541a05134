package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config 节点配置
type Config struct {
	Node     NodeConfig     `json:"node"`
	Cluster  ClusterConfig  `json:"cluster"`
	Edge     EdgeConfig     `json:"edge"`
	Database DatabaseConfig `json:"database"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
}

// NodeConfig 本节点标识：ClusterID 必须是 Cluster.Nodes 中的下标。
type NodeConfig struct {
	Name      string `json:"name"`       // 服务名称
	ClusterID int    `json:"cluster_id"` // 集群内编号，0 为总部
}

// ClusterConfig 集群拓扑与分支间通信配置
type ClusterConfig struct {
	Nodes              []ClusterNode `json:"nodes"`                // 按编号排列的全部节点
	CallTimeoutSeconds int           `json:"call_timeout_seconds"` // 分支间调用超时
	SealPassphrase     string        `json:"seal_passphrase"`      // 报文加密口令
	AuthSecret         string        `json:"auth_secret"`          // 节点间令牌密钥，空则不启用
}

// ClusterNode 单个节点的地址与所辖分支资料
type ClusterNode struct {
	Host       string  `json:"host"`
	GRPCPort   int     `json:"grpc_port"`
	BranchName string  `json:"branch_name"` // 总部节点留空
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// EdgeConfig 总部对外 HTTP 接入配置
type EdgeConfig struct {
	HTTPPort  int `json:"http_port"`
	RateLimit int `json:"rate_limit"` // 每秒请求上限，0 不限流
	RateBurst int `json:"rate_burst"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// CallTimeout 分支间调用超时，未配置时取 30 秒。
func (c *ClusterConfig) CallTimeout() time.Duration {
	if c.CallTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// Validate 校验拓扑自洽
func (c *Config) Validate() error {
	if len(c.Cluster.Nodes) < 2 {
		return fmt.Errorf("cluster needs a head node and at least one branch, got %d nodes", len(c.Cluster.Nodes))
	}
	if c.Node.ClusterID < 0 || c.Node.ClusterID >= len(c.Cluster.Nodes) {
		return fmt.Errorf("node cluster_id %d out of range [0,%d)", c.Node.ClusterID, len(c.Cluster.Nodes))
	}
	for i, n := range c.Cluster.Nodes {
		if n.Host == "" || n.GRPCPort == 0 {
			return fmt.Errorf("cluster node %d missing host or grpc_port", i)
		}
		if i > 0 && n.BranchName == "" {
			return fmt.Errorf("cluster node %d missing branch_name", i)
		}
	}
	return nil
}

// LoadConfig 加载配置，文件不存在时回落到默认配置。
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig 默认配置（开发环境，单机双节点）
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Name:      "head-node",
			ClusterID: 0,
		},
		Cluster: ClusterConfig{
			Nodes: []ClusterNode{
				{Host: "localhost", GRPCPort: 50050},
				{Host: "localhost", GRPCPort: 50051, BranchName: "Central", Latitude: 48.8566, Longitude: 2.3522},
			},
			CallTimeoutSeconds: 30,
			SealPassphrase:     "rentalgrid-dev",
		},
		Edge: EdgeConfig{
			HTTPPort:  8080,
			RateLimit: 100,
			RateBurst: 200,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "rentalgrid",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
