package graph

import (
	"errors"

	"github.com/roach88/cutline/internal/keyframe"
)

var (
	ErrUnknownInput      = errors.New("unknown input")
	ErrUnknownNode       = errors.New("unknown node")
	ErrElementOutOfRange = errors.New("element out of range")
	ErrTrackOutOfRange   = errors.New("track out of range")
	ErrNotKeyframable    = errors.New("input is not keyframable")
	ErrNotKeyframed      = errors.New("element is not keyframed")
	ErrAlreadyKeyframed  = errors.New("element is keyframed")
	ErrTypeMismatch      = errors.New("value type mismatch")
	ErrNotConnectable    = errors.New("input is not connectable")
	ErrNotConnected      = errors.New("element is not connected")
	ErrNotArray          = errors.New("input is not an array")

	// ErrKeyframeNotFound is keyframe.ErrKeyframeNotFound, re-exported so
	// callers of this package can match it without importing keyframe.
	ErrKeyframeNotFound = keyframe.ErrKeyframeNotFound

	// ErrUnknownInterpolation is keyframe.ErrUnknownInterpolation.
	ErrUnknownInterpolation = keyframe.ErrUnknownInterpolation
)
