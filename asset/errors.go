// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import "errors"

const prefix = "asset: "

var (
	ErrLoadFailure    = errors.New(prefix + "load failure")
	ErrProcessFailure = errors.New(prefix + "process failure")
	ErrBakeFailure    = errors.New(prefix + "bake failure")
	ErrNotBaked       = errors.New(prefix + "asset is not baked")
	ErrUnknownLoader  = errors.New(prefix + "no loader registered for extension")
	ErrStaleHandle    = errors.New(prefix + "stale asset handle")
)
