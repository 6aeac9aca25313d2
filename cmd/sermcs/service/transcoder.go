package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/common/config"
	"github.com/libnare/sermcs/common/logger"
)

// Filter graphs per profile. Bounding boxes cap the long edge while
// force_original_aspect_ratio=decrease preserves aspect ratio; upscaling is
// prevented by the min() terms.
const (
	videoFilter     = "thumbnail,scale='min(498,iw)':'min(422,ih)':force_original_aspect_ratio=decrease"
	staticFilter    = "scale='min(498,iw)':'min(422,ih)':force_original_aspect_ratio=decrease"
	animatedFilter  = "scale='min(374,iw)':'min(317,ih)':force_original_aspect_ratio=decrease"
	webPublicFilter = "scale='min(2048,iw)':'min(2048,ih)':force_original_aspect_ratio=decrease"
)

// TranscoderService derives renditions of media artifacts by invoking
// ffmpeg as an out-of-process filter. The source artifact is never deleted
// on failure, so a retry can reuse it without re-fetching.
type TranscoderService struct {
	cfg     config.TranscodeConfig
	tempDir string
	log     *logger.Logger
}

// NewTranscoderService creates a new transcoder service
func NewTranscoderService(cfg config.TranscodeConfig, tempDir string, log *logger.Logger) *TranscoderService {
	return &TranscoderService{
		cfg:     cfg,
		tempDir: tempDir,
		log:     log,
	}
}

// Derive produces a thumbnail rendition of srcPath according to the
// profile classified from declaredType. Returns the output path and its
// content type. The caller owns the output file.
func (s *TranscoderService) Derive(ctx context.Context, srcPath, declaredType string) (string, string, error) {
	profile := models.ProfileFor(declaredType)
	return s.run(ctx, srcPath, profile)
}

// DeriveWebPublic produces a full-resolution re-encode capped at
// 2048x2048, used for the public serving role when enabled.
func (s *TranscoderService) DeriveWebPublic(ctx context.Context, srcPath, declaredType string) (string, string, error) {
	return s.run(ctx, srcPath, models.ProfileWebPublic)
}

func (s *TranscoderService) run(ctx context.Context, srcPath string, profile models.Profile) (string, string, error) {
	outType := profile.OutputContentType()
	outPath := filepath.Join(s.tempDir, uuid.NewString()+"."+ExtensionForType(outType))

	args := transcodeArgs(srcPath, outPath, profile)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	s.log.Debug("invoking transcoder",
		"profile", profile.String(),
		"src", srcPath,
		"out", outPath,
	)

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", "", fmt.Errorf("%w: profile %s: %v: %s", ErrTranscodeFailed, profile, err, tail(stderr.String(), 512))
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outPath)
		return "", "", fmt.Errorf("%w: profile %s produced no output", ErrTranscodeFailed, profile)
	}

	s.log.Info("transcode complete",
		"profile", profile.String(),
		"out_type", outType,
		"bytes", info.Size(),
	)

	return outPath, outType, nil
}

// transcodeArgs builds the ffmpeg invocation for a profile
func transcodeArgs(srcPath, outPath string, profile models.Profile) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", srcPath}

	switch profile {
	case models.ProfileVideo:
		// One representative frame; the thumbnail filter picks it.
		args = append(args,
			"-vf", videoFilter,
			"-frames:v", "1",
			"-c:v", "libaom-av1",
			"-still-picture", "1",
		)
	case models.ProfileAnimated:
		// libwebp_anim keeps every frame; -loop 0 preserves infinite looping
		args = append(args,
			"-vf", animatedFilter,
			"-c:v", "libwebp_anim",
			"-loop", "0",
		)
	case models.ProfileWebPublic:
		args = append(args,
			"-vf", webPublicFilter,
			"-c:v", "libwebp",
			"-frames:v", "1",
		)
	default:
		args = append(args,
			"-vf", staticFilter,
			"-frames:v", "1",
			"-c:v", "libaom-av1",
			"-still-picture", "1",
		)
	}

	return append(args, outPath)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
