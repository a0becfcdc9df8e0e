package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig admin api server configuration
type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// DBConfig database configuration, type is postgres or sqlite
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"-"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// MonitorConfig probing engine configuration
type MonitorConfig struct {
	Autostart     bool          `yaml:"autostart" json:"autostart"`
	Interval      time.Duration `yaml:"interval" json:"interval"`
	ProbeCount    int           `yaml:"probe_count" json:"probe_count"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	ProbeDelay    time.Duration `yaml:"probe_delay" json:"probe_delay"`
	Workers       int           `yaml:"workers" json:"workers"`
	Privileged    bool          `yaml:"privileged" json:"privileged"`
	RetentionDays int           `yaml:"retention_days" json:"retention_days"`
}

// UnmarshalYAML lets interval, probe_timeout and probe_delay be written
// either as "30s" or as bare seconds.
func (c *MonitorConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain MonitorConfig
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, node := value.Content[i], value.Content[i+1]
			switch key.Value {
			case "interval", "probe_timeout", "probe_delay":
			default:
				continue
			}
			if node.Kind != yaml.ScalarNode {
				continue
			}
			d, err := parseDuration(node.Value)
			if err != nil {
				return errors.Wrapf(err, "monitor.%s (line %d)", key.Value, node.Line)
			}
			node.Tag = "!!str"
			node.Value = d.String()
		}
	}
	return value.Decode((*plain)(c))
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
	Monitor  MonitorConfig `yaml:"monitor" json:"monitor"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) initDirs() {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir(), c.GetBackupDir()} {
		_ = os.MkdirAll(dir, 0o755)
	}
}

// DefaultAppConfig returns the built-in configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "NetMon",
			Location: "Asia/Shanghai",
			Workdir:  "/var/netmon",
			Debug:    false,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 1817,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "netmon",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/netmon/logs/netmon.log",
		},
		Monitor: MonitorConfig{
			Autostart:     true,
			Interval:      60 * time.Second,
			ProbeCount:    5,
			ProbeTimeout:  2 * time.Second,
			ProbeDelay:    200 * time.Millisecond,
			Workers:       1,
			Privileged:    false,
			RetentionDays: 90,
		},
	}
}

// LoadConfig reads cfile (or ./netmon.yml, /etc/netmon.yml) over the
// defaults, then applies environment overrides. A missing file is not an
// error.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile == "" {
		for _, candidate := range []string{"netmon.yml", "/etc/netmon.yml"} {
			if fileExists(candidate) {
				cfile = candidate
				break
			}
		}
	}

	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}

	applyEnv(cfg)
	cfg.initDirs()
	return cfg, nil
}

// MustLoadConfig is LoadConfig for program start, panicking on error.
func MustLoadConfig(cfile string) *AppConfig {
	cfg, err := LoadConfig(cfile)
	if err != nil {
		panic(err)
	}
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("NETMON_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("NETMON_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("NETMON_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("NETMON_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("NETMON_WEB_PORT", &cfg.Web.Port)

	// libpq style variables first, NETMON_DB_* wins when both are set
	setEnvValue("PGHOST", &cfg.Database.Host)
	setEnvIntValue("PGPORT", &cfg.Database.Port)
	setEnvValue("PGDATABASE", &cfg.Database.Name)
	setEnvValue("PGUSER", &cfg.Database.User)
	setEnvValue("PGPASSWORD", &cfg.Database.Passwd)
	setEnvValue("NETMON_DB_TYPE", &cfg.Database.Type)
	setEnvValue("NETMON_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("NETMON_DB_PORT", &cfg.Database.Port)
	setEnvValue("NETMON_DB_NAME", &cfg.Database.Name)
	setEnvValue("NETMON_DB_USER", &cfg.Database.User)
	setEnvValue("NETMON_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("NETMON_DB_MAX_CONN", &cfg.Database.MaxConn)
	setEnvIntValue("NETMON_DB_IDLE_CONN", &cfg.Database.IdleConn)
	setEnvBoolValue("NETMON_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("NETMON_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("NETMON_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvBoolValue("NETMON_MONITOR_AUTOSTART", &cfg.Monitor.Autostart)
	setEnvDurationValue("NETMON_MONITOR_INTERVAL", &cfg.Monitor.Interval)
	setEnvIntValue("NETMON_MONITOR_PROBE_COUNT", &cfg.Monitor.ProbeCount)
	setEnvDurationValue("NETMON_MONITOR_PROBE_TIMEOUT", &cfg.Monitor.ProbeTimeout)
	setEnvDurationValue("NETMON_MONITOR_PROBE_DELAY", &cfg.Monitor.ProbeDelay)
	setEnvIntValue("NETMON_MONITOR_WORKERS", &cfg.Monitor.Workers)
	setEnvBoolValue("NETMON_MONITOR_PRIVILEGED", &cfg.Monitor.Privileged)
	setEnvIntValue("NETMON_MONITOR_RETENTION_DAYS", &cfg.Monitor.RetentionDays)
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*val = b
		}
	}
}

func setEnvIntValue(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

// setEnvDurationValue accepts Go durations ("90s") or plain seconds.
func setEnvDurationValue(name string, val *time.Duration) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if d, err := parseDuration(v); err == nil {
		*val = d
	}
}

// parseDuration reads a bare number as seconds, anything else as a Go
// duration string.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := cast.ToFloat64E(v); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", v)
	}
	return d, nil
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}
