package config

const (
	defaultArtifactDir         = "~/.local/share/vidaq/trim_results"
	defaultStagingDir          = "~/.local/share/vidaq/uploads"
	defaultStateDir            = "~/.local/share/vidaq"
	defaultLogDir              = "~/.local/share/vidaq/logs"
	defaultBind                = "127.0.0.1:8888"
	defaultArtifactRoute       = "trim_results"
	defaultMaxUploadMB         = 2048
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultSegmentSeconds      = 1
	defaultMaxConcurrent       = 2
	defaultTranscodeTimeoutSec = 3600
	defaultRewriteMode         = RewriteModeLine
	defaultStagingMaxAgeHours  = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Manifest rewrite modes.
const (
	RewriteModeLine   = "line"
	RewriteModeCoarse = "coarse"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArtifactDir: defaultArtifactDir,
			StagingDir:  defaultStagingDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Server: Server{
			Bind:          defaultBind,
			ArtifactRoute: defaultArtifactRoute,
			MaxUploadMB:   defaultMaxUploadMB,
		},
		Transcode: Transcode{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			SegmentSeconds: defaultSegmentSeconds,
			MaxConcurrent:  defaultMaxConcurrent,
			TimeoutSeconds: defaultTranscodeTimeoutSec,
		},
		Manifest: Manifest{
			RewriteMode: defaultRewriteMode,
		},
		Staging: Staging{
			MaxAgeHours: defaultStagingMaxAgeHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
