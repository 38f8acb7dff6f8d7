package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ImageConstraints are passed to the picker. Aspect is width:height.
type ImageConstraints struct {
	AllowsEditing bool
	AspectX       int
	AspectY       int
	Quality       float64
}

// AvatarConstraints is the square crop the avatar picker asks for.
var AvatarConstraints = ImageConstraints{AllowsEditing: true, AspectX: 1, AspectY: 1, Quality: 1}

type PickedImage struct {
	URI string
}

// MediaPicker lets the user choose an image. It returns ErrPickCancelled when
// the user backs out.
type MediaPicker interface {
	PickImage(ctx context.Context, constraints ImageConstraints) (PickedImage, error)
}

// ImageSource reads the bytes behind a local image reference.
type ImageSource interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, title, message string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, title, message string) (bool, error) {
	return f(ctx, title, message)
}

var (
	ErrUnsupportedURI = errors.New("unsupported image reference")
	ErrImageTooLarge  = errors.New("image too large")
)

// IsLocalURI reports whether ref points at a device file that still has to
// be uploaded.
func IsLocalURI(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(ref, "file://") || strings.HasPrefix(ref, "content://")
}

// LocalFileSource reads file:// references from disk.
type LocalFileSource struct {
	MaxBytes int64
}

func (s LocalFileSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || !strings.EqualFold(u.Scheme, "file") || u.Path == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
	}

	f, err := os.Open(u.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if s.MaxBytes > 0 {
		r = io.LimitReader(f, s.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
