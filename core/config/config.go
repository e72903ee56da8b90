package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	// ConfigurationName is the file name used in the home directory.
	ConfigurationName = ".myshell.yaml"
	// EnvConfigPath overrides the configuration location.
	EnvConfigPath = "MYSHELL_CONFIG"
)

// Color modes for the prompt.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs

	Prompt string `json:"prompt" validate:"required"`
	Color  string `json:"color" validate:"oneof=auto always never"`

	HistorySize   int `json:"history_size" validate:"gte=1"`
	MaxStages     int `json:"max_stages" validate:"gte=1,lte=128"`
	MaxArgs       int `json:"max_args" validate:"gte=1"`
	MaxLineLength int `json:"max_line_length" validate:"gte=1"`

	AppLog string `json:"app_log"`
	TTYLog string `json:"tty_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// OpenAppLog opens the application log in an append only state. It returns
// nil if no log is configured.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.openAppendOnly(c.AppLog)
}

// OpenTTYLog opens the terminal recording in an append only state. It returns
// nil if no recording is configured.
func (c *Configuration) OpenTTYLog() (afero.File, error) {
	return c.openAppendOnly(c.TTYLog)
}

func (c *Configuration) openAppendOnly(path string) (afero.File, error) {
	if path == "" {
		return nil, nil
	}
	return c.fs().OpenFile(expandHome(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// UseColor reports whether the prompt should be colored given whether the
// output is a terminal.
func (c *Configuration) UseColor(isTerminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal
	}
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the embedded configuration backed by fs.
func Default(fs afero.Fs) *Configuration {
	out := defaultConfig()
	out.configFs = fs
	return out
}
