// Package config loads settings from a config file and TAPVOICE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tapvoice/gate"
	"tapvoice/hotkey"
)

const envPrefix = "TAPVOICE"

type Config struct {
	Hotkey      HotkeyConfig      `mapstructure:"hotkey"`
	Controller  ControllerConfig  `mapstructure:"controller"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	Gate        GateConfig        `mapstructure:"gate"`
	Inject      InjectConfig      `mapstructure:"inject"`
	UI          UIConfig          `mapstructure:"ui"`
	Log         LogConfig         `mapstructure:"log"`
}

type HotkeyConfig struct {
	Key         string        `mapstructure:"key"`
	QuitKey     string        `mapstructure:"quit_key"`
	DoublePress time.Duration `mapstructure:"double_press"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

type ControllerConfig struct {
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

type CaptureConfig struct {
	Device        string        `mapstructure:"device"`
	ListenTimeout time.Duration `mapstructure:"listen_timeout"`
	SilenceWarn   time.Duration `mapstructure:"silence_warn"`
	SilenceEnd    time.Duration `mapstructure:"silence_end"`
	PhraseLimit   time.Duration `mapstructure:"phrase_limit"`
	Threshold     float64       `mapstructure:"threshold"`
}

type TranscriberConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type GateConfig struct {
	Allowlist []string `mapstructure:"allowlist"`
}

type InjectConfig struct {
	RestoreClipboard bool          `mapstructure:"restore_clipboard"`
	RestoreDelay     time.Duration `mapstructure:"restore_delay"`
}

const (
	UITray = "tray"
	UITUI  = "tui"
	UINone = "none"
)

type UIConfig struct {
	Mode   string `mapstructure:"mode"`
	Beep   bool   `mapstructure:"beep"`
	Notify bool   `mapstructure:"notify"`
}

type LogConfig struct {
	Path string `mapstructure:"path"`
}

func DefaultConfig() Config {
	return Config{
		Hotkey: HotkeyConfig{
			Key:         "f9",
			QuitKey:     "f10",
			DoublePress: hotkey.DefaultDoublePress,
			Cooldown:    hotkey.DefaultCooldown,
		},
		Controller: ControllerConfig{StopTimeout: 2 * time.Second},
		Capture: CaptureConfig{
			ListenTimeout: time.Second,
			SilenceWarn:   8 * time.Second,
			SilenceEnd:    800 * time.Millisecond,
			PhraseLimit:   15 * time.Second,
			Threshold:     0.02,
		},
		Transcriber: TranscriberConfig{
			Provider: "groq",
			Language: "en",
			Timeout:  30 * time.Second,
		},
		Gate:   GateConfig{Allowlist: gate.DefaultAllowlist()},
		Inject: InjectConfig{RestoreClipboard: true, RestoreDelay: 600 * time.Millisecond},
		UI:     UIConfig{Mode: UITray, Beep: true, Notify: true},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("hotkey.key", d.Hotkey.Key)
	v.SetDefault("hotkey.quit_key", d.Hotkey.QuitKey)
	v.SetDefault("hotkey.double_press", d.Hotkey.DoublePress)
	v.SetDefault("hotkey.cooldown", d.Hotkey.Cooldown)
	v.SetDefault("controller.stop_timeout", d.Controller.StopTimeout)
	v.SetDefault("capture.device", d.Capture.Device)
	v.SetDefault("capture.listen_timeout", d.Capture.ListenTimeout)
	v.SetDefault("capture.silence_warn", d.Capture.SilenceWarn)
	v.SetDefault("capture.silence_end", d.Capture.SilenceEnd)
	v.SetDefault("capture.phrase_limit", d.Capture.PhraseLimit)
	v.SetDefault("capture.threshold", d.Capture.Threshold)
	v.SetDefault("transcriber.provider", d.Transcriber.Provider)
	v.SetDefault("transcriber.api_key", d.Transcriber.APIKey)
	v.SetDefault("transcriber.model", d.Transcriber.Model)
	v.SetDefault("transcriber.language", d.Transcriber.Language)
	v.SetDefault("transcriber.timeout", d.Transcriber.Timeout)
	v.SetDefault("gate.allowlist", d.Gate.Allowlist)
	v.SetDefault("inject.restore_clipboard", d.Inject.RestoreClipboard)
	v.SetDefault("inject.restore_delay", d.Inject.RestoreDelay)
	v.SetDefault("ui.mode", d.UI.Mode)
	v.SetDefault("ui.beep", d.UI.Beep)
	v.SetDefault("ui.notify", d.UI.Notify)
	v.SetDefault("log.path", d.Log.Path)
}

// Dir returns $XDG_CONFIG_HOME/tapvoice, falling back to ~/.config/tapvoice.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "tapvoice"), nil
}

// Load reads path, or config.{yaml,json,toml} from Dir when path is empty.
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return Config{}, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"hotkey.double_press", c.Hotkey.DoublePress},
		{"hotkey.cooldown", c.Hotkey.Cooldown},
		{"controller.stop_timeout", c.Controller.StopTimeout},
		{"capture.listen_timeout", c.Capture.ListenTimeout},
		{"capture.silence_warn", c.Capture.SilenceWarn},
		{"capture.silence_end", c.Capture.SilenceEnd},
		{"capture.phrase_limit", c.Capture.PhraseLimit},
		{"transcriber.timeout", c.Transcriber.Timeout},
		{"inject.restore_delay", c.Inject.RestoreDelay},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.d))
		}
	}

	if c.Hotkey.Key == "" {
		errs = append(errs, errors.New("hotkey.key is required"))
	} else if err := hotkey.Validate(c.Hotkey.Key); err != nil {
		errs = append(errs, fmt.Errorf("hotkey.key: %w", err))
	}
	if c.Hotkey.QuitKey != "" {
		if err := hotkey.Validate(c.Hotkey.QuitKey); err != nil {
			errs = append(errs, fmt.Errorf("hotkey.quit_key: %w", err))
		}
		if hotkey.Normalize(c.Hotkey.QuitKey) == hotkey.Normalize(c.Hotkey.Key) {
			errs = append(errs, errors.New("hotkey.quit_key must differ from hotkey.key"))
		}
	}

	if c.Capture.Threshold <= 0 || c.Capture.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("capture.threshold must be in (0, 1), got %v", c.Capture.Threshold))
	}

	switch strings.ToLower(c.Transcriber.Provider) {
	case "groq", "openai":
	default:
		errs = append(errs, fmt.Errorf("transcriber.provider %q is not one of groq, openai", c.Transcriber.Provider))
	}

	if len(c.Gate.Allowlist) == 0 {
		errs = append(errs, errors.New("gate.allowlist is empty; no window could receive text"))
	}

	switch c.UI.Mode {
	case UITray, UITUI, UINone:
	default:
		errs = append(errs, fmt.Errorf("ui.mode %q is not one of tray, tui, none", c.UI.Mode))
	}

	return errors.Join(errs...)
}
