package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构
type Config struct {
	// 当前服务配置
	Service struct {
		Name             string `mapstructure:"name"`
		ListenAddress    string `mapstructure:"listen_address"`
		Port             int    `mapstructure:"port"`
		AdvertiseAddress string `mapstructure:"advertise_address"` // 注册到服务发现的地址
	} `mapstructure:"service"`

	// etcd配置（服务发现后端）
	Etcd struct {
		Endpoints   []string      `mapstructure:"endpoints"`
		Username    string        `mapstructure:"username"`
		Password    string        `mapstructure:"password"`
		DialTimeout time.Duration `mapstructure:"dial_timeout"`
	} `mapstructure:"etcd"`

	// 数据库配置
	Database struct {
		Driver string `mapstructure:"driver"` // "memory"、"mysql" 或 "etcd"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	// 下游用户服务配置
	UserService struct {
		Name      string `mapstructure:"name"` // 在注册中心中的服务名
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		DNSServer string `mapstructure:"dns_server"` // 可选，通过SRV记录解析用户服务地址
		SRVName   string `mapstructure:"srv_name"`
	} `mapstructure:"user_service"`

	// 出站调用的弹性策略
	Resilience struct {
		Timeout          time.Duration `mapstructure:"timeout"`
		MaxRetries       int           `mapstructure:"max_retries"`
		BackoffBase      time.Duration `mapstructure:"backoff_base"`
		BreakerThreshold int           `mapstructure:"breaker_threshold"`
		BreakDuration    time.Duration `mapstructure:"break_duration"`
	} `mapstructure:"resilience"`

	// 服务发现生命周期配置
	Discovery struct {
		Enabled                 bool          `mapstructure:"enabled"`
		HealthURL               string        `mapstructure:"health_url"`
		Interval                time.Duration `mapstructure:"interval"`
		Timeout                 time.Duration `mapstructure:"timeout"`
		DeregisterCriticalAfter time.Duration `mapstructure:"deregister_critical_after"`
	} `mapstructure:"discovery"`

	// 入站认证配置（用户服务使用）
	Auth struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"auth"`

	// 日志配置
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
		OutputFile  string `mapstructure:"output_file"`
	} `mapstructure:"log"`

	// 可观测性配置
	Telemetry struct {
		TracingEnabled bool   `mapstructure:"tracing_enabled"`
		MetricsPath    string `mapstructure:"metrics_path"`
	} `mapstructure:"telemetry"`
}

// LoadConfig 从文件和环境变量加载配置
// service为默认服务名，用于区分内容服务和用户服务的默认值
func LoadConfig(configPath string, service string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v, service)

	// 如果指定了配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.contentmesh")
		v.AddConfigPath("/etc/contentmesh")
	}

	v.SetConfigType("yaml")

	// 找不到默认配置文件时使用默认值；显式指定的文件不存在则报错
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件错误: %w", err)
		}
	}

	// 绑定环境变量
	v.SetEnvPrefix("CONTENTMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVariables(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置错误: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper, service string) {
	if service == "" {
		service = "contentservice"
	}

	v.SetDefault("service.name", service)
	v.SetDefault("service.listen_address", "0.0.0.0")
	v.SetDefault("service.port", 80)
	v.SetDefault("service.advertise_address", service)

	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.username", "")
	v.SetDefault("etcd.password", "")
	v.SetDefault("etcd.dial_timeout", 5*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")

	v.SetDefault("user_service.name", "userservice")
	v.SetDefault("user_service.base_url", "http://userservice:80")
	v.SetDefault("user_service.api_key", "supersecretkey")
	v.SetDefault("user_service.dns_server", "")
	v.SetDefault("user_service.srv_name", "_http._tcp.userservice.default.svc.cluster.local.")

	// 与原有策略保持一致：整体超时10秒，重试3次（2s/4s/8s），连续2次失败熔断30秒
	v.SetDefault("resilience.timeout", 10*time.Second)
	v.SetDefault("resilience.max_retries", 3)
	v.SetDefault("resilience.backoff_base", time.Second)
	v.SetDefault("resilience.breaker_threshold", 2)
	v.SetDefault("resilience.break_duration", 30*time.Second)

	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.health_url", fmt.Sprintf("http://%s/health", service))
	v.SetDefault("discovery.interval", 10*time.Second)
	v.SetDefault("discovery.timeout", 5*time.Second)
	v.SetDefault("discovery.deregister_critical_after", 30*time.Second)

	v.SetDefault("auth.api_key", "supersecretkey")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
	v.SetDefault("log.output_file", "")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.metrics_path", "/metrics")
}

// bindEnvVariables 绑定常用的环境变量
func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("etcd.endpoints", "CONTENTMESH_ETCD_ENDPOINTS")
	v.BindEnv("service.port", "CONTENTMESH_PORT")
	v.BindEnv("database.dsn", "CONTENTMESH_DATABASE_DSN")
	v.BindEnv("user_service.base_url", "CONTENTMESH_USER_SERVICE_URL")
	v.BindEnv("auth.api_key", "CONTENTMESH_API_KEY")
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("服务名称不能为空")
	}
	if c.Service.Port <= 0 {
		return fmt.Errorf("服务端口必须大于0: %d", c.Service.Port)
	}
	if c.Resilience.Timeout <= 0 || c.Resilience.BackoffBase <= 0 || c.Resilience.BreakDuration <= 0 {
		return fmt.Errorf("弹性策略的时间配置必须大于0")
	}
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("重试次数不能为负数: %d", c.Resilience.MaxRetries)
	}
	if c.Resilience.BreakerThreshold <= 0 {
		return fmt.Errorf("熔断阈值必须大于0: %d", c.Resilience.BreakerThreshold)
	}
	if c.Discovery.Interval <= 0 || c.Discovery.Timeout <= 0 || c.Discovery.DeregisterCriticalAfter <= 0 {
		return fmt.Errorf("健康检查的时间配置必须大于0")
	}
	switch c.Database.Driver {
	case "memory", "mysql", "etcd":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	return nil
}

// GetDefaultConfigPath 返回默认配置文件路径
func GetDefaultConfigPath() string {
	paths := []string{
		"./config.yaml",
		"./configs/config.yaml",
		os.Getenv("HOME") + "/.contentmesh/config.yaml",
		"/etc/contentmesh/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
