package generation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	AspectRatios     = []string{"1:1", "16:9", "9:16"}
	Resolutions      = []string{"720p", "1080p"}
	PersonGeneration = []string{"allow_all", "allow_adult", "dont_allow"}
)

const (
	DefaultImageAspectRatio = "1:1"
	DefaultVideoAspectRatio = "16:9"
	DefaultResolution       = "720p"
	DefaultPersonGeneration = "allow_adult"
	DefaultDurationSeconds  = 8
	MaxDurationSeconds      = 8
)

var (
	ErrUnsupportedAspectRatio = errors.New("unsupported aspect ratio")
	ErrUnsupportedResolution  = errors.New("unsupported resolution")
	ErrUnsupportedPerson      = errors.New("unsupported person generation")
	Err1080pAspect            = errors.New("1080p resolution only supports 16:9 aspect ratio")
	ErrImageAllowAll          = errors.New("image to video generation does not support generating videos with both adults and children")
	ErrInvalidDuration        = errors.New("invalid duration")
	ErrEmptyPrompt            = errors.New("prompt is required")
)

// ValidateVideoParams applies the shared video parameter rules.
func ValidateVideoParams(aspectRatio, resolution, person string) error {
	if !slices.Contains(AspectRatios, aspectRatio) {
		return fmt.Errorf("%w: %s. Supported: %s", ErrUnsupportedAspectRatio, aspectRatio, strings.Join(AspectRatios, ", "))
	}
	if err := ValidateResolution(resolution); err != nil {
		return err
	}
	if !slices.Contains(PersonGeneration, person) {
		return fmt.Errorf("%w: %s. Supported: %s", ErrUnsupportedPerson, person, strings.Join(PersonGeneration, ", "))
	}
	if resolution == "1080p" && aspectRatio != "16:9" {
		return Err1080pAspect
	}
	return nil
}

// ValidateImageToVideoParams adds the image-to-video restriction on
// allow_all.
func ValidateImageToVideoParams(aspectRatio, resolution, person string) error {
	if err := ValidateVideoParams(aspectRatio, resolution, person); err != nil {
		return err
	}
	if person == "allow_all" {
		return ErrImageAllowAll
	}
	return nil
}

func ValidateResolution(resolution string) error {
	if !slices.Contains(Resolutions, resolution) {
		return fmt.Errorf("%w: %s. Supported: %s", ErrUnsupportedResolution, resolution, strings.Join(Resolutions, ", "))
	}
	return nil
}

// normalizeDuration returns the default for 0 and rejects anything outside
// 1..MaxDurationSeconds.
func normalizeDuration(seconds int) (int, error) {
	if seconds == 0 {
		return DefaultDurationSeconds, nil
	}
	if seconds < 1 || seconds > MaxDurationSeconds {
		return 0, fmt.Errorf("%w: %d seconds, must be between 1 and %d", ErrInvalidDuration, seconds, MaxDurationSeconds)
	}
	return seconds, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
