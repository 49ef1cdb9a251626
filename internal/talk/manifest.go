package talk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"talkvid/internal/services"
)

// DateLayout is the format of Manifest.Date and of the rendered date text.
const DateLayout = "2006-01-02"

// DefaultSpeakerPattern matches camcorder recordings when a speaker_video
// entry names a directory.
const DefaultSpeakerPattern = "*.MTS"

// DefaultScreenPattern matches screen grabs inside a screen_video directory.
const DefaultScreenPattern = "*.ogv"

// Manifest describes one talk recording.
type Manifest struct {
	Template     string   `yaml:"template"`
	SpeakerVideo string   `yaml:"speaker_video"`
	ScreenVideo  string   `yaml:"screen_video"`
	Speaker      string   `yaml:"speaker"`
	Title        string   `yaml:"title"`
	URL          string   `yaml:"url"`
	Event        string   `yaml:"event"`
	Date         string   `yaml:"date"`
	Preview      bool     `yaml:"preview"`
	AVOffset     float64  `yaml:"av_offset"`
	// ScreenOffset replaces audio synchronization of the screen grab: the
	// seconds by which the talk starts later in the speaker recording than
	// in the screen grab. Positive delays the screen grab, negative the
	// speaker. Unset means measure it.
	ScreenOffset *float64 `yaml:"screen_offset"`
	FPS          int      `yaml:"fps"`
	Output       string   `yaml:"output"`

	// dir resolves relative paths; it is the manifest's directory.
	dir string
}

// LoadManifest reads a YAML manifest. Relative paths inside it are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest dir: %w", err)
	}
	m.dir = abs
	return m, nil
}

// ParseManifest decodes manifest YAML, rejecting unknown keys.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrConfiguration, "talk", "parse manifest", "", err)
	}
	return &m, nil
}

// ApplyDefaults fills unset fields. fps comes from the render configuration.
func (m *Manifest) ApplyDefaults(fps int) {
	if m.FPS <= 0 {
		m.FPS = fps
	}
	if m.FPS <= 0 {
		m.FPS = 25
	}
	if strings.TrimSpace(m.SpeakerVideo) == "" {
		m.SpeakerVideo = DefaultSpeakerPattern
	}
	if strings.TrimSpace(m.Output) == "" {
		m.Output = slug(m.Title) + ".mkv"
	}
}

// Validate reports the first problem that would stop a build.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Template) == "" {
		return m.invalid("template is required")
	}
	if strings.TrimSpace(m.SpeakerVideo) == "" {
		return m.invalid("speaker_video is required")
	}
	if strings.TrimSpace(m.URL) == "" {
		return m.invalid("url is required for the closing QR code")
	}
	if m.Date != "" {
		if _, err := time.Parse(DateLayout, m.Date); err != nil {
			return m.invalid(fmt.Sprintf("date %q is not YYYY-MM-DD", m.Date))
		}
	}
	if m.FPS < 0 {
		return m.invalid("fps must be positive")
	}
	if m.ScreenOffset != nil && strings.TrimSpace(m.ScreenVideo) == "" {
		return m.invalid("screen_offset needs a screen_video")
	}
	return nil
}

func (m *Manifest) invalid(message string) error {
	return services.Wrap(services.ErrConfiguration, "talk", "validate manifest", message, nil)
}

// Resolve makes a manifest path absolute relative to the manifest.
func (m *Manifest) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if m.dir == "" {
		return path
	}
	return filepath.Join(m.dir, path)
}

// SpeakerText is the speaker's name as shown on screen.
func (m *Manifest) SpeakerText() string {
	if m.Speaker == "" {
		return ""
	}
	return m.Speaker + ":"
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "talk"
	}
	return out
}
