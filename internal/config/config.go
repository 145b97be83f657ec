package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voicejournal/internal/waveform"
)

// EnvPrefix is the prefix of environment variables that override file values,
// e.g. VOICEJOURNAL_AUDIO_SAMPLE_RATE.
const EnvPrefix = "VOICEJOURNAL"

type Config struct {
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Playback  PlaybackConfig  `mapstructure:"playback" yaml:"playback"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type AudioConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend"` // "portaudio", "auto"
	SampleRate      int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels        int    `mapstructure:"channels" yaml:"channels"`
	BitDepth        int    `mapstructure:"bit_depth" yaml:"bit_depth"`
	FramesPerBuffer int    `mapstructure:"frames_per_buffer" yaml:"frames_per_buffer"`
}

type RecordingConfig struct {
	MinDuration       time.Duration      `mapstructure:"min_duration" yaml:"min_duration"`
	MaxAmplitude      int                `mapstructure:"max_amplitude" yaml:"max_amplitude"`
	DurationInterval  time.Duration      `mapstructure:"duration_interval" yaml:"duration_interval"`
	AmplitudeInterval time.Duration      `mapstructure:"amplitude_interval" yaml:"amplitude_interval"`
	HandoffTrack      waveform.TrackSize `mapstructure:"handoff_track" yaml:"handoff_track"`
}

type PlaybackConfig struct {
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
}

type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	TempDir       string `mapstructure:"temp_dir" yaml:"temp_dir"`
	RecordingsDir string `mapstructure:"recordings_dir" yaml:"recordings_dir"`
	Database      string `mapstructure:"database" yaml:"database"`
	SettingsFile  string `mapstructure:"settings_file" yaml:"settings_file"`
}

type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

var defaultConfig = Config{
	Audio: AudioConfig{
		Backend:         "auto",
		SampleRate:      44100,
		Channels:        1,
		BitDepth:        16,
		FramesPerBuffer: 1024,
	},
	Recording: RecordingConfig{
		MinDuration:       1500 * time.Millisecond,
		MaxAmplitude:      26000,
		DurationInterval:  10 * time.Millisecond,
		AmplitudeInterval: 100 * time.Millisecond,
		HandoffTrack:      waveform.TrackSize{TrackWidth: 10000, BarWidth: 20, Spacing: 15},
	},
	Playback: PlaybackConfig{
		ProgressInterval: 10 * time.Millisecond,
	},
	Storage: StorageConfig{
		DataDir: "~/.local/share/voicejournal",
	},
	Log: LogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	},
}

// Default returns a copy of the built-in configuration with derived paths resolved.
func Default() *Config {
	cfg := defaultConfig
	cfg.resolvePaths()
	return &cfg
}

// DefaultPath returns the config file used when --config is not given.
func DefaultPath() string {
	return expandPath("~/.config/voicejournal.yaml")
}

// Load reads configFile (if it exists) on top of the defaults, applies
// VOICEJOURNAL_* environment overrides and validates the result. A .env file
// in the working directory is loaded into the environment first.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(expandPath(configFile))
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.resolvePaths()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig
	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.bit_depth", d.Audio.BitDepth)
	v.SetDefault("audio.frames_per_buffer", d.Audio.FramesPerBuffer)

	v.SetDefault("recording.min_duration", d.Recording.MinDuration)
	v.SetDefault("recording.max_amplitude", d.Recording.MaxAmplitude)
	v.SetDefault("recording.duration_interval", d.Recording.DurationInterval)
	v.SetDefault("recording.amplitude_interval", d.Recording.AmplitudeInterval)
	v.SetDefault("recording.handoff_track.track_width", d.Recording.HandoffTrack.TrackWidth)
	v.SetDefault("recording.handoff_track.bar_width", d.Recording.HandoffTrack.BarWidth)
	v.SetDefault("recording.handoff_track.spacing", d.Recording.HandoffTrack.Spacing)

	v.SetDefault("playback.progress_interval", d.Playback.ProgressInterval)

	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.temp_dir", "")
	v.SetDefault("storage.recordings_dir", "")
	v.SetDefault("storage.database", "")
	v.SetDefault("storage.settings_file", "")

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// resolvePaths expands ~ and fills storage paths left empty from data_dir.
func (c *Config) resolvePaths() {
	s := &c.Storage
	s.DataDir = expandPath(s.DataDir)
	if s.TempDir == "" {
		s.TempDir = filepath.Join(s.DataDir, "cache")
	}
	if s.RecordingsDir == "" {
		s.RecordingsDir = filepath.Join(s.DataDir, "recordings")
	}
	if s.Database == "" {
		s.Database = filepath.Join(s.DataDir, "journal.db")
	}
	if s.SettingsFile == "" {
		s.SettingsFile = filepath.Join(s.DataDir, "settings.yaml")
	}
	s.TempDir = expandPath(s.TempDir)
	s.RecordingsDir = expandPath(s.RecordingsDir)
	s.Database = expandPath(s.Database)
	s.SettingsFile = expandPath(s.SettingsFile)
	c.Log.File = expandPath(c.Log.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func validate(c *Config) error {
	if err := validateAudio(c.Audio); err != nil {
		return err
	}
	if err := validateRecording(c.Recording); err != nil {
		return err
	}
	if c.Playback.ProgressInterval <= 0 {
		return fmt.Errorf("playback.progress_interval must be positive, got %s", c.Playback.ProgressInterval)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be positive when log.file is set, got %d", c.Log.MaxSizeMB)
	}
	return nil
}

func validateAudio(a AudioConfig) error {
	switch strings.ToLower(a.Backend) {
	case "", "auto", "portaudio":
	default:
		return fmt.Errorf("audio.backend '%s' is not supported (use 'portaudio' or 'auto')", a.Backend)
	}
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate %d out of range [8000, 192000]", a.SampleRate)
	}
	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", a.Channels)
	}
	if a.BitDepth != 16 {
		return fmt.Errorf("audio.bit_depth %d is not supported (only 16)", a.BitDepth)
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", a.FramesPerBuffer)
	}
	return nil
}

func validateRecording(r RecordingConfig) error {
	if r.MinDuration < 0 {
		return fmt.Errorf("recording.min_duration cannot be negative, got %s", r.MinDuration)
	}
	if r.MaxAmplitude <= 0 {
		return fmt.Errorf("recording.max_amplitude must be positive, got %d", r.MaxAmplitude)
	}
	if r.DurationInterval <= 0 {
		return fmt.Errorf("recording.duration_interval must be positive, got %s", r.DurationInterval)
	}
	if r.AmplitudeInterval <= 0 {
		return fmt.Errorf("recording.amplitude_interval must be positive, got %s", r.AmplitudeInterval)
	}
	if _, err := r.HandoffTrack.Bars(); err != nil {
		return fmt.Errorf("recording.handoff_track: %w", err)
	}
	return nil
}
