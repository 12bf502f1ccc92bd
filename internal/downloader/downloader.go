package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/aniworld-dev/media-grab-bot/types"
)

// Extractor resolves a media URL into a local artifact plus metadata.
type Extractor interface {
	Extract(ctx context.Context, url string, quality types.Quality) (*types.DownloadResult, error)
	Probe(ctx context.Context, url string) (*types.LinkPreview, error)
}

// YtdlpExtractor drives the yt-dlp binary through go-ytdlp.
type YtdlpExtractor struct {
	dir         string
	cookiesFile string
}

func NewYtdlpExtractor(dir, cookiesFile string) *YtdlpExtractor {
	return &YtdlpExtractor{
		dir:         dir,
		cookiesFile: cookiesFile,
	}
}

// formatFor maps a quality selector to a yt-dlp format expression. The
// mapping is total; an unknown selector is a programming error upstream.
func formatFor(quality types.Quality) string {
	switch quality {
	case types.QualityHigh:
		return "best"
	case types.QualityLow:
		return "worst"
	case types.QualityAudio:
		return "bestaudio/best"
	default:
		return "best"
	}
}

func KindFor(quality types.Quality) types.MediaKind {
	if quality == types.QualityAudio {
		return types.MediaAudio
	}
	return types.MediaVideo
}

// Extract downloads the media into a working file named after a fresh uuid,
// never after the media title: titles are unsafe as path components and
// collide across concurrent users. The caller owns the returned file.
func (e *YtdlpExtractor) Extract(ctx context.Context, url string, quality types.Quality) (*types.DownloadResult, error) {
	workID := uuid.New().String()

	dl := ytdlp.New().
		NoPlaylist().
		RestrictFilenames().
		ForceOverwrites().
		Format(formatFor(quality)).
		Output(filepath.Join(e.dir, workID+".%(ext)s"))

	if quality == types.QualityAudio {
		dl = dl.ExtractAudio().AudioFormat("mp3").AudioQuality("192K")
	}
	if e.cookiesFile != "" {
		dl = dl.Cookies(e.cookiesFile)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		e.removeWorkFiles(workID)
		return nil, classify(err)
	}

	artifact, err := e.findArtifact(workID, quality)
	if err != nil {
		return nil, err
	}

	title := ""
	if result != nil {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Title != nil {
			title = strings.TrimSpace(*info[0].Title)
		}
	}
	if title == "" {
		title = "media"
	}

	return &types.DownloadResult{
		LocalPath:    artifact,
		Kind:         KindFor(quality),
		DisplayTitle: title,
	}, nil
}

// Probe fetches title and thumbnail without downloading. Callers treat any
// failure as non-fatal.
func (e *YtdlpExtractor) Probe(ctx context.Context, url string) (*types.LinkPreview, error) {
	dl := ytdlp.New().NoPlaylist().SkipDownload()
	if e.cookiesFile != "" {
		dl = dl.Cookies(e.cookiesFile)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, classify(err)
	}

	preview := &types.LinkPreview{}
	if result != nil {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 {
			if info[0].Title != nil {
				preview.Title = strings.TrimSpace(*info[0].Title)
			}
			if info[0].Thumbnail != nil {
				preview.ThumbnailURL = strings.TrimSpace(*info[0].Thumbnail)
			}
		}
	}
	return preview, nil
}

// findArtifact locates the output file for a work ID. yt-dlp exiting zero
// without producing the file signals an extraction/postprocessing mismatch.
func (e *YtdlpExtractor) findArtifact(workID string, quality types.Quality) (string, error) {
	matches, err := filepath.Glob(filepath.Join(e.dir, workID+".*"))
	if err != nil || len(matches) == 0 {
		return "", types.NewDownloadError(types.DownloadArtifactMissing,
			fmt.Errorf("no output file for work id %s", workID))
	}

	if quality == types.QualityAudio {
		for _, m := range matches {
			if strings.EqualFold(filepath.Ext(m), ".mp3") {
				return m, nil
			}
		}
	}
	return matches[0], nil
}

func (e *YtdlpExtractor) removeWorkFiles(workID string) {
	matches, err := filepath.Glob(filepath.Join(e.dir, workID+".*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

var restrictedSignatures = []string{
	"private video",
	"sign in to confirm",
	"login required",
	"members-only",
	"join this channel",
	"not available in your country",
	"geo restriction",
	"geo-restricted",
	"age-restricted",
	"account associated with this video has been terminated",
}

// classify folds an extraction failure into the download error taxonomy.
// Timeouts and cancellations pass through as unexpected failures.
func classify(err error) *types.DownloadError {
	msg := strings.ToLower(err.Error())
	for _, sig := range restrictedSignatures {
		if strings.Contains(msg, sig) {
			return types.NewDownloadError(types.DownloadRestricted, err)
		}
	}
	return types.NewDownloadError(types.DownloadUnexpected, err)
}
