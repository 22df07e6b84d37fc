package nodes

// BuiltinConfig carries the external-service settings builtin capabilities
// need. Credentials come from the environment; endpoints from config.yaml.
type BuiltinConfig struct {
	FFmpegBin         string // default "ffmpeg"
	AWSBin            string // default "aws"
	StorageEndpoint   string
	StorageBucket     string
	StorageToken      string
	LipsyncURL        string
	LipsyncAPIKey     string
	LipsyncMaxWorkers int
}

// RegisterBuiltins registers every builtin capability. Explicit
// registration keeps the available type set auditable.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) {
	ffmpeg := ffmpegRunner{Bin: cfg.FFmpegBin}
	aws := awsRunner{Bin: cfg.AWSBin}

	// input
	r.Register(LoadVideo{})
	r.Register(LoadAudio{})
	r.Register(LoadDirectory{})
	r.Register(LoadCSV{})
	r.Register(LoadManifest{})

	// video
	r.Register(ExtractAudio{FFmpeg: ffmpeg})
	r.Register(ChunkVideo{FFmpeg: ffmpeg})
	r.Register(BounceVideo{FFmpeg: ffmpeg})
	r.Register(DetectScenes{FFmpeg: ffmpeg})
	r.Register(CreateShots{FFmpeg: ffmpeg})

	// storage
	r.Register(S3Upload{AWS: aws})
	r.Register(S3Download{AWS: aws})
	r.Register(UploadStorage{
		Endpoint: cfg.StorageEndpoint,
		Bucket:   cfg.StorageBucket,
		Token:    cfg.StorageToken,
	})

	// api
	r.Register(LipsyncBatch{
		URL:        cfg.LipsyncURL,
		APIKey:     cfg.LipsyncAPIKey,
		MaxWorkers: cfg.LipsyncMaxWorkers,
	})

	// utility
	r.Register(ConvertTimecodes{})
	r.Register(FilterFiles{})
	r.Register(RenameFiles{})
	r.Register(MergeDirectories{})
	r.Register(CreateManifest{})
	r.Register(MergeResults{})
}
