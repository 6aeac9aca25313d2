package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/libnare/sermcs/common/clients"
	"github.com/libnare/sermcs/common/config"
	"github.com/libnare/sermcs/common/logger"
	"github.com/libnare/sermcs/common/security"
	"github.com/sethvargo/go-retry"
)

// OriginResponse is a validated, streaming origin response. The caller owns
// Body and must close it.
type OriginResponse struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
}

// FetcherService streams bytes from origin URLs, reconciling the content
// type the origin serves against the one the metadata store declared.
type FetcherService struct {
	http      *clients.HTTPClient
	validator *security.OriginValidator
	cfg       config.FetchConfig
	log       *logger.Logger
}

// NewFetcherService creates a new fetcher service
func NewFetcherService(http *clients.HTTPClient, validator *security.OriginValidator, cfg config.FetchConfig, log *logger.Logger) *FetcherService {
	return &FetcherService{
		http:      http,
		validator: validator,
		cfg:       cfg,
		log:       log,
	}
}

// typesReconcile reports whether an observed content type satisfies the
// declared one. Exact match, with one equivalence: animated PNG travels as
// image/png on the wire, so declared image/apng accepts observed image/png.
func typesReconcile(declared, observed string) bool {
	if declared == observed {
		return true
	}
	return declared == "image/apng" && observed == "image/png"
}

// Fetch issues a streaming GET against originURL. Connection failures are
// retried with exponential backoff; a non-2xx status or a content-type
// mismatch is terminal and never retried. On mismatch the body is closed
// before a single byte is persisted anywhere.
func (s *FetcherService) Fetch(ctx context.Context, originURL, declaredType string) (*OriginResponse, error) {
	if err := s.validator.Validate(originURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOriginUnreachable, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)

	var result *OriginResponse
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxRetries), retry.NewExponential(s.cfg.RetryBase))

	err := retry.Do(fetchCtx, backoff, func(ctx context.Context) error {
		resp, err := s.http.Get(ctx, originURL)
		if err != nil {
			s.log.Warn("origin connection failed, may retry", "url", originURL, "error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrOriginUnreachable, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
		}

		if observed := resp.Header.Get("Content-Type"); observed != "" {
			mediaType, _, err := mime.ParseMediaType(observed)
			if err != nil {
				mediaType = observed
			}
			if !typesReconcile(declaredType, mediaType) {
				resp.Body.Close()
				return fmt.Errorf("%w: declared %s, origin served %s", ErrContentTypeMismatch, declaredType, mediaType)
			}
		}

		result = &OriginResponse{
			Body:               &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
			ContentType:        declaredType,
			ContentDisposition: resp.Header.Get("Content-Disposition"),
		}
		return nil
	})
	if err != nil {
		cancel()
		return nil, err
	}

	return result, nil
}

// cancelOnClose releases the fetch timeout context when the caller finishes
// draining the body
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// FetchToFile downloads an origin object to dstPath with the same
// validation as Fetch. The file appears at dstPath only once fully
// written (temp file + rename), so an existing dstPath is always complete.
func (s *FetcherService) FetchToFile(ctx context.Context, originURL, declaredType, dstPath string) error {
	resp, err := s.Fetch(ctx, originURL, declaredType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmpPath := filepath.Join(filepath.Dir(dstPath), "tmp-"+uuid.NewString())
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create download file: %v", ErrCacheWrite, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: stream interrupted: %v", ErrOriginUnreachable, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close download file: %v", ErrCacheWrite, err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: publish download file: %v", ErrCacheWrite, err)
	}

	return nil
}
