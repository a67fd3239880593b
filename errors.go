package s3freeze

import (
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrSetup is returned when the output directory cannot be cleared or created.
	// It is the only failure class that aborts a run before any page is written.
	ErrSetup = errors.New("export setup failed")

	// ErrRender marks a route whose handler panicked while rendering.
	ErrRender = errors.New("route render failed")

	// ErrStatus marks a route that rendered with a non 200 status.
	ErrStatus = errors.New("route returned non-success status")

	// ErrMissingAsset marks a static reference with no source file.
	ErrMissingAsset = errors.New("static asset not found")

	// ErrEncoding is returned when a text file cannot be rewritten in UTF-8.
	ErrEncoding = errors.New("encoding normalization failed")
)

func panicOrError(err error) error {
	if err != nil {
		if os.Getenv("PANIC_ON_ALL_ERRORS") == "true" || os.Getenv("PANIC_ON_S3FREEZE_ERRORS") == "true" {
			panic(err)
		}
	}
	return err
}
