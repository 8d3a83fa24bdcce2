package deps

// MediaRequirements lists the media tools the transcode engine shells out to.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for HLS rendering",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Required for media inspection",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
	}
}
