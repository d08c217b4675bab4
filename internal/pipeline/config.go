package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jwo-cv/merlcut/internal/types"
)

const (
	BackendExec     = "exec"
	BackendFFmpegGo = "ffmpeg-go"
)

type Config struct {
	AnnotationDir    string `env:"MERLCUT_LABEL_DIR"`
	AnnotationSuffix string `env:"MERLCUT_LABEL_SUFFIX"   envDefault:"_label"`
	Variable         string `env:"MERLCUT_LABEL_VARIABLE" envDefault:"tlabs"`

	VideoDir      string `env:"MERLCUT_VIDEO_DIR"`
	VideoTemplate string `env:"MERLCUT_VIDEO_TEMPLATE" envDefault:"{video}_crop.mp4"`

	OutDir       string `env:"MERLCUT_OUT_DIR"  envDefault:"out"`
	ManifestPath string `env:"MERLCUT_MANIFEST"`
	Ext          string `env:"MERLCUT_EXT"      envDefault:"mp4"`
	GroupByClass bool   `env:"MERLCUT_GROUP_BY_CLASS"`

	// Classes are "slot:id:label" triples.
	Classes []string `env:"MERLCUT_CLASSES" envDefault:"0:0:pick,1:1:return" envSeparator:","`

	FrameRate      float64       `env:"MERLCUT_FPS"          envDefault:"30"`
	ProbeFrameRate bool          `env:"MERLCUT_PROBE_FPS"`
	TrimTimeout    time.Duration `env:"MERLCUT_TRIM_TIMEOUT" envDefault:"5m"`

	LabelsOnly bool `env:"MERLCUT_LABELS_ONLY"`
	FailFast   bool `env:"MERLCUT_FAIL_FAST"`

	Backend     string `env:"MERLCUT_BACKEND"      envDefault:"exec"`
	FFmpegPath  string `env:"MERLCUT_FFMPEG_PATH"  envDefault:"ffmpeg"`
	FFprobePath string `env:"MERLCUT_FFPROBE_PATH" envDefault:"ffprobe"`

	LedgerPath  string `env:"MERLCUT_LEDGER"`
	MetricsFile string `env:"MERLCUT_METRICS_FILE"`
	Progress    bool   `env:"MERLCUT_PROGRESS"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads the environment into a Config with defaults applied.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.AnnotationDir == "" {
		return errors.New("annotation dir is empty")
	}
	if err := requireDir(c.AnnotationDir); err != nil {
		return fmt.Errorf("annotation dir: %w", err)
	}
	if !c.LabelsOnly || c.ProbeFrameRate {
		if c.VideoDir == "" {
			return errors.New("video dir is empty")
		}
		if err := requireDir(c.VideoDir); err != nil {
			return fmt.Errorf("video dir: %w", err)
		}
	}
	if !strings.Contains(c.VideoTemplate, "{video}") {
		return fmt.Errorf("video template %q has no {video} placeholder", c.VideoTemplate)
	}
	if c.OutDir == "" {
		return errors.New("out dir is empty")
	}
	ext := strings.TrimPrefix(c.Ext, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("invalid extension %q", c.Ext)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	if c.TrimTimeout < 0 {
		return fmt.Errorf("trim timeout must be >= 0")
	}
	switch c.Backend {
	case BackendExec, BackendFFmpegGo:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendExec, BackendFFmpegGo)
	}
	if _, err := ParseClasses(c.Classes); err != nil {
		return err
	}
	return nil
}

func (c Config) manifestPath() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.OutDir, "labels.csv")
}

// summary is the short config description stored with a ledger run.
func (c Config) summary() string {
	return fmt.Sprintf("labels=%s videos=%s out=%s fps=%g probe=%t classes=%s labels_only=%t backend=%s",
		c.AnnotationDir, c.VideoDir, c.OutDir, c.FrameRate, c.ProbeFrameRate,
		strings.Join(c.Classes, ","), c.LabelsOnly, c.Backend)
}

// ParseClasses parses "slot:id:label" specs. Slots and class tags must be unique.
func ParseClasses(specs []string) ([]types.Class, error) {
	if len(specs) == 0 {
		return nil, errors.New("at least one class is required")
	}
	out := make([]types.Class, 0, len(specs))
	slots := map[int]bool{}
	tags := map[string]bool{}
	for _, spec := range specs {
		parts := strings.SplitN(strings.TrimSpace(spec), ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("class %q: want slot:id:label", spec)
		}
		slot, err := strconv.Atoi(parts[0])
		if err != nil || slot < 0 {
			return nil, fmt.Errorf("class %q: invalid slot", spec)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil || id < 0 {
			return nil, fmt.Errorf("class %q: invalid id", spec)
		}
		label := parts[2]
		if label == "" || strings.ContainsAny(label, `/\`) {
			return nil, fmt.Errorf("class %q: invalid label", spec)
		}
		c := types.Class{Slot: slot, ID: id, Label: label}
		if slots[slot] {
			return nil, fmt.Errorf("class %q: slot %d used twice", spec, slot)
		}
		if tags[c.Tag()] {
			return nil, fmt.Errorf("class %q: duplicate class %s", spec, c.Tag())
		}
		slots[slot], tags[c.Tag()] = true, true
		out = append(out, c)
	}
	return out, nil
}

func requireDir(p string) error {
	st, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", p)
	}
	return nil
}
