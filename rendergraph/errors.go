// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "errors"

// prefix is prepended to every sentinel error defined by this
// package, matching the driver package's convention.
const prefix = "rendergraph: "

var (
	// ErrAccessMismatch is returned when a pass declares a read
	// where a write-only access state was required, or vice versa.
	ErrAccessMismatch = errors.New(prefix + "access kind does not match read/write role")

	// ErrUsageMismatch is returned when a resource is referenced
	// with an access mask that has no entry in the usage-flag
	// table. This is a programmer error.
	ErrUsageMismatch = errors.New(prefix + "unknown access mask")

	// ErrFramebufferInvalid is returned when the swapchain is
	// out-of-date or suboptimal at present time.
	ErrFramebufferInvalid = errors.New(prefix + "framebuffer invalid")

	// ErrAcquireImage is returned when acquiring the next
	// swapchain image fails.
	ErrAcquireImage = errors.New(prefix + "failed to acquire swapchain image")

	// ErrStaleHandle is returned when a handle's generation
	// predates the resource's current generation.
	ErrStaleHandle = errors.New(prefix + "stale resource handle")

	// ErrSwapchainOnce is returned by a second call to
	// Builder.GetSwapchain within the same frame.
	ErrSwapchainOnce = errors.New(prefix + "get_swapchain called more than once")

	// ErrShaderCompile is returned when a shader's lazy
	// compilation future fails.
	ErrShaderCompile = errors.New(prefix + "shader compile failure")

	// ErrPipelineCreate is returned when the backend fails to
	// create a pipeline object from an otherwise valid binary.
	ErrPipelineCreate = errors.New(prefix + "pipeline create failure")
)
