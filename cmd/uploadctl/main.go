package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chunk-upload-system/client"

	"github.com/docker/go-units"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

var (
	server      string
	chunkSize   string
	parallelism int
	useGzip     bool
	resumeId    string
	abortId     string
	owner       string
	category    string
	noHash      bool
	verbose     bool
	timeout     time.Duration
)

func init() {
	flag.StringVar(&server, "server", "http://localhost:7282/api/v1", "Upload API base URL")
	flag.StringVar(&chunkSize, "chunk-size", "", "Chunk size, e.g. 4MiB (default: server tier for the file size)")
	flag.IntVar(&parallelism, "parallel", 4, "Concurrent chunk uploads")
	flag.BoolVar(&useGzip, "gzip", false, "Gzip chunk bodies")
	flag.StringVar(&resumeId, "resume", "", "Resume the given session instead of starting a new upload")
	flag.StringVar(&abortId, "abort", "", "Abort the given session and exit")
	flag.StringVar(&owner, "owner", "", "Owner recorded on the file")
	flag.StringVar(&category, "category", "", "Category recorded on the file")
	flag.BoolVar(&noHash, "no-hash", false, "Do not send a SHA256 hint (disables dedup)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Per-request timeout")
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.NewClient(server, timeout, useGzip)

	if abortId != "" {
		if err := c.Abort(ctx, abortId); err != nil {
			fmt.Fprintf(os.Stderr, "abort failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session %s aborted\n", abortId)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	opts := client.UploaderOptions{
		Parallelism: parallelism,
		Owner:       owner,
		Category:    category,
		SkipHash:    noHash,
	}
	if chunkSize != "" {
		size, err := units.RAMInBytes(chunkSize)
		if err != nil || size <= 0 {
			fmt.Fprintf(os.Stderr, "invalid chunk size %q\n", chunkSize)
			os.Exit(2)
		}
		opts.ChunkSize = size
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	bar := progressbar.NewOptions64(
		info.Size(),
		progressbar.OptionSetDescription(fmt.Sprintf("Uploading %s", info.Name())),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
	progress := func(n int64) { _ = bar.Add64(n) }

	uploader := client.NewUploader(c, opts, log)
	var file *client.FileInfo
	if resumeId != "" {
		file, err = uploader.Resume(ctx, resumeId, path, progress)
	} else {
		file, err = uploader.UploadFile(ctx, path, progress)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		var sessionErr *client.SessionError
		var apiErr *client.APIError
		if errors.As(err, &sessionErr) && (!errors.As(err, &apiErr) || apiErr.Retryable()) {
			fmt.Fprintf(os.Stderr, "the session was kept; rerun with -resume %s to continue\n", sessionErr.SessionId)
		}
		os.Exit(1)
	}

	fmt.Printf("id:      %d\n", file.ID)
	fmt.Printf("key:     %s\n", file.StorageKey)
	fmt.Printf("size:    %s\n", units.HumanSize(float64(file.FileSize)))
	fmt.Printf("sha256:  %s\n", file.FileHash)
	fmt.Printf("type:    %s\n", file.ContentType)
}
