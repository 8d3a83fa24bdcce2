package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation marks missing or malformed input. No state is mutated.
	ErrValidation = errors.New("validation error")
	// ErrUnsupportedMedia marks an upload whose declared content type is not video.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrNotFound marks an unknown catalog item.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation marks a fingerprint collision at insert; callers
	// recover by looking the fingerprint up again.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrArtifactsNotReady marks a catalog item whose artifact set is not committed yet.
	ErrArtifactsNotReady = errors.New("artifacts not ready")
	// ErrEngine marks a failure of the external probe/render engine.
	ErrEngine = errors.New("engine failure")
	// ErrConfiguration marks an unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrEngine
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a classified error to the response status the delivery
// gateway reports. Unknown ids are reported as 400, matching the upload/download
// contract rather than 404.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrArtifactsNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
