package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/faradayfan/minecraft-monitor/internal/logging"
	"github.com/faradayfan/minecraft-monitor/internal/manager"
)

const (
	DefaultFile      = "monitor.yaml"
	DefaultEnvPrefix = "MONITOR_"

	// MinWait is the shortest allowed wait interval.
	MinWait = 500 * time.Millisecond
)

var memoryRe = regexp.MustCompile(`^[0-9]+[KMG]$`)

// defaults are the lowest-priority layer.
func defaults() map[string]any {
	return map[string]any{
		"server.location":   "./server",
		"server.java":       "java",
		"server.jar":        "minecraft_server.1.16.4.jar",
		"server.memory.min": "1G",
		"server.memory.max": "2G",
		"server.args":       "",
		"server.stop":       manager.DefaultStopCommand,
		"server.grace":      "30s",
		"web.address":       "127.0.0.1",
		"web.port":          8000,
		"web.public":        "./public",
		"web.index":         "/home.html",
		"web.eula":          "/eula.html",
		"web.starting":      "/starting.html",
		"web.serial":        true,
		"log.level":         "info",
		"log.verbosity":     "none",
		"console.prefix":    17,
		"timing.poll":       manager.DefaultPollInterval.String(),
		"timing.wait":       manager.DefaultWaitInterval.String(),
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"location":   "server.location",
	"java":       "server.java",
	"jar":        "server.jar",
	"min-memory": "server.memory.min",
	"max-memory": "server.memory.max",
	"args":       "server.args",
	"address":    "web.address",
	"port":       "web.port",
	"public":     "web.public",
	"serial":     "web.serial",
	"log-level":  "log.level",
	"verbosity":  "log.verbosity",
	"prefix":     "console.prefix",
}

// RegisterFlags adds the overriding flags to fs. Only flags the user sets
// take effect; their defaults are informational.
func RegisterFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("location", d["server.location"].(string), "server working directory")
	fs.String("java", d["server.java"].(string), "java executable")
	fs.String("jar", d["server.jar"].(string), "server jar file")
	fs.String("min-memory", d["server.memory.min"].(string), "minimum heap size (e.g. 1G)")
	fs.String("max-memory", d["server.memory.max"].(string), "maximum heap size (e.g. 2G)")
	fs.String("args", "", `extra JVM arguments, "off" for none`)
	fs.String("address", d["web.address"].(string), "IPv4 address to listen on")
	fs.Int("port", d["web.port"].(int), "port to listen on")
	fs.String("public", d["web.public"].(string), "directory holding the web assets")
	fs.Bool("serial", true, "handle one web request at a time")
	fs.String("log-level", d["log.level"].(string), "debug, info, warn or error")
	fs.String("verbosity", d["log.verbosity"].(string), "echo output: none, mine, web or mineweb")
	fs.Int("prefix", d["console.prefix"].(int), "width of the server log prefix")
}

// Loader merges defaults, the config file, the environment and flags,
// in increasing priority.
type Loader struct {
	k         *koanf.Koanf
	path      string
	explicit  bool
	envPrefix string
}

// NewLoader reads path when set; otherwise monitor.yaml is used if present.
func NewLoader(path string) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		path:      path,
		explicit:  path != "",
		envPrefix: DefaultEnvPrefix,
	}
	if l.path == "" {
		l.path = DefaultFile
	}
	return l
}

func (l *Loader) Load(fs *pflag.FlagSet) (*Config, error) {
	if err := l.k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if _, err := os.Stat(l.path); err == nil || l.explicit {
		if err := l.k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", l.path, err)
		}
	}

	// MONITOR_WEB_PORT -> web.port
	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, l.envPrefix)), "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if fs != nil {
		changed := make(map[string]any)
		fs.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				changed[key] = f.Value.String()
			}
		})
		if err := l.k.Load(mapProvider(changed), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if addr, err := netip.ParseAddr(c.Web.Address); err != nil || !addr.Is4() {
		errs = append(errs, fmt.Errorf("web.address %q is not an IPv4 address", c.Web.Address))
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web.port %d out of range", c.Web.Port))
	}
	if !strings.HasSuffix(c.Server.Jar, ".jar") || len(c.Server.Jar) == len(".jar") {
		errs = append(errs, fmt.Errorf("server.jar %q should be a .jar file", c.Server.Jar))
	}
	if strings.TrimSpace(c.Server.Java) == "" {
		errs = append(errs, errors.New("server.java is required"))
	}
	if !memoryRe.MatchString(c.Server.Memory.Min) {
		errs = append(errs, fmt.Errorf("server.memory.min %q is not <number>[K|M|G]", c.Server.Memory.Min))
	}
	if !memoryRe.MatchString(c.Server.Memory.Max) {
		errs = append(errs, fmt.Errorf("server.memory.max %q is not <number>[K|M|G]", c.Server.Memory.Max))
	}
	if strings.TrimSpace(c.Server.Stop) == "" {
		errs = append(errs, errors.New("server.stop is required"))
	}
	if c.Server.Grace <= 0 {
		errs = append(errs, fmt.Errorf("server.grace %s must be positive", c.Server.Grace))
	}
	if _, err := logging.ParseVerbosity(c.Log.Verbosity); err != nil {
		errs = append(errs, fmt.Errorf("log.verbosity: %w", err))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q (expected debug|info|warn|error)", c.Log.Level))
	}
	if c.Console.Prefix < 0 {
		errs = append(errs, fmt.Errorf("console.prefix %d must not be negative", c.Console.Prefix))
	}
	if c.Timing.Poll <= 0 {
		errs = append(errs, fmt.Errorf("timing.poll %s must be positive", c.Timing.Poll))
	}
	if c.Timing.Wait < MinWait {
		errs = append(errs, fmt.Errorf("timing.wait %s is below %s", c.Timing.Wait, MinWait))
	}
	if _, err := c.JVMArgs(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// JVMArgs splits server.args with shell quoting rules.
func (c *Config) JVMArgs() ([]string, error) {
	raw := strings.TrimSpace(c.Server.Args)
	if raw == "" || raw == "off" {
		return nil, nil
	}
	args, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("server.args %q: %w", raw, err)
	}
	return args, nil
}

// ProcessSpec builds `java -Xms<min> -Xmx<max> <args...> -jar <jar> nogui`.
func (c *Config) ProcessSpec() (manager.ProcessSpec, error) {
	extra, err := c.JVMArgs()
	if err != nil {
		return manager.ProcessSpec{}, err
	}
	args := []string{"-Xms" + c.Server.Memory.Min, "-Xmx" + c.Server.Memory.Max}
	args = append(args, extra...)
	args = append(args, "-jar", c.Server.Jar, "nogui")
	return manager.ProcessSpec{
		Command: c.Server.Java,
		Args:    args,
		Dir:     c.Server.Location,
	}, nil
}

// ListenAddr joins web.address and web.port.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Web.Address, strconv.Itoa(c.Web.Port))
}

// Render prints the effective config as YAML.
func (c *Config) Render() ([]byte, error) {
	b, err := yamlv3.Marshal(c.view())
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return b, nil
}

// view swaps durations for their string form so the output can be fed back in.
func (c *Config) view() any {
	type server struct {
		Location string `yaml:"location"`
		Java     string `yaml:"java"`
		Jar      string `yaml:"jar"`
		Memory   Memory `yaml:"memory"`
		Args     string `yaml:"args"`
		Stop     string `yaml:"stop"`
		Grace    string `yaml:"grace"`
	}
	type timing struct {
		Poll string `yaml:"poll"`
		Wait string `yaml:"wait"`
	}
	s := c.Server
	return struct {
		Server  server  `yaml:"server"`
		Web     Web     `yaml:"web"`
		Log     Log     `yaml:"log"`
		Console Console `yaml:"console"`
		Timing  timing  `yaml:"timing"`
	}{
		Server: server{
			Location: s.Location, Java: s.Java, Jar: s.Jar, Memory: s.Memory,
			Args: s.Args, Stop: s.Stop, Grace: s.Grace.String(),
		},
		Web:     c.Web,
		Log:     c.Log,
		Console: c.Console,
		Timing:  timing{Poll: c.Timing.Poll.String(), Wait: c.Timing.Wait.String()},
	}
}

// mapProvider is a koanf provider backed by a map with dotted keys.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
