package log

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// FileConfig is the content of the file passed via --log-config.
//
// Example:
//
//	level: info
//	loggers:
//	  db.sql: debug
//	  standings: warn
type FileConfig struct {
	Level   string            `yaml:"level"`
	Loggers map[string]string `yaml:"loggers"`
}

func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse log config %s: %w", path, err)
	}
	return &cfg, nil
}

// Rules converts the config into zapfilter rules.
// Named loggers get their own minimum level, everything else uses Level.
func (c *FileConfig) Rules() string {
	def := c.Level
	if def == "" {
		def = "info"
	}
	names := make([]string, 0, len(c.Loggers))
	for name := range c.Loggers {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]string, 0, len(names)+1)
	excludes := make([]string, 0, len(names))
	for _, name := range names {
		rules = append(rules, fmt.Sprintf("%s+:%s", c.Loggers[name], name))
		excludes = append(excludes, name)
	}
	if len(excludes) == 0 {
		rules = append(rules, fmt.Sprintf("%s+:*", def))
	} else {
		rules = append(rules,
			fmt.Sprintf("%s+:*,-%s", def, strings.Join(excludes, ",-")))
	}
	return strings.Join(rules, " ")
}

// WithFilter applies zapfilter rules on top of the core.
// The logger must be created with DebugLevel for lower levels to pass.
func WithFilter(rules string) (Option, error) {
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, err
	}
	return zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(c, filter)
	}), nil
}
