package model

import (
	"errors"
	"fmt"
)

// Every failure that aborts a phase wraps exactly one of these sentinels.
// Match with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrDataContract      = errors.New("data contract error")
	ErrCatalogResolution = errors.New("catalog resolution error")
	ErrArtifactConflict  = errors.New("artifact conflict")
)

func ConfigErrorf(format string, args ...any) error {
	return wrapf(ErrConfiguration, format, args...)
}

func DataErrorf(format string, args ...any) error {
	return wrapf(ErrDataContract, format, args...)
}

func CatalogErrorf(format string, args ...any) error {
	return wrapf(ErrCatalogResolution, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
