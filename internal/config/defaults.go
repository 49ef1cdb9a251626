package config

const (
	defaultLogDir         = "~/.local/share/talkvid/logs"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultInkscape       = "inkscape"
	defaultSmallFileBytes = 16 << 20
	defaultFPS            = 25
	defaultFormat         = "matroska"
	defaultVideoCodec     = "libx264"
	defaultAudioCodec     = "flac"
	defaultSampleRate     = 22050
	defaultHopLength      = 512
	defaultFFTSize        = 2048
	defaultMelBands       = 40
	defaultCoefficients   = 10
	defaultWindow         = 200
	defaultWindowMin      = 50
	defaultWindowShrink   = 3
	defaultHopRatio       = 0.75
	defaultCutoff         = 0.125
	defaultSyncWorkers    = 2
	defaultSyncFadeIn     = 0.5
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:   defaultFFmpeg,
			FFprobe:  defaultFFprobe,
			Inkscape: defaultInkscape,
		},
		Cache: Cache{
			SmallFileBytes: defaultSmallFileBytes,
		},
		Render: Render{
			FPS:        defaultFPS,
			Format:     defaultFormat,
			VideoCodec: defaultVideoCodec,
			AudioCodec: defaultAudioCodec,
		},
		Sync: Sync{
			SampleRate:   defaultSampleRate,
			HopLength:    defaultHopLength,
			FFTSize:      defaultFFTSize,
			MelBands:     defaultMelBands,
			Coefficients: defaultCoefficients,
			Window:       defaultWindow,
			WindowMin:    defaultWindowMin,
			WindowShrink: defaultWindowShrink,
			HopRatio:     defaultHopRatio,
			Cutoff:       defaultCutoff,
			Workers:      defaultSyncWorkers,
			FadeIn:       defaultSyncFadeIn,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
