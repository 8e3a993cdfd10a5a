// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// AccessState is a symbolic tag describing how a resource will be
// used next. It maps through accessTable (see below) to a
// (sync-before/after, access-before/after, layout) triple suitable
// for driver.Transition. This table is this package's source of
// truth for barrier derivation and must be exhaustive; an unknown
// AccessState is a fatal programmer error (spec.md §9 Design Notes).
type AccessState int

const (
	AccessNone AccessState = iota
	AccessComputeShaderRead
	AccessComputeShaderWrite
	AccessVertexShaderRead
	AccessFragmentShaderRead
	AccessColorAttachmentWrite
	AccessColorAttachmentRead
	AccessDepthAttachmentWrite
	AccessDepthAttachmentWriteStencilReadOnly
	AccessDepthAttachmentRead
	AccessTransferRead
	AccessTransferWrite
	AccessVertexBufferRead
	AccessIndexBufferRead
	AccessPresent
)

// accessInfo is the resolved (sync, access, layout) triple for an
// AccessState.
type accessInfo struct {
	syncBefore, syncAfter     driver.Sync
	accessBefore, accessAfter driver.Access
	layout                    driver.Layout
	imageUsage                driver.Usage
	bufferUsage               driver.Usage
}

// accessTable is the fixed table mapping access kind -> usage flags
// and barrier parameters, transcribed from
// raven-rg/src/graph.rs::image_access_mask_to_usage_flags and
// buffer_access_mask_to_usage_flags (spec.md §4.2).
var accessTable = map[AccessState]accessInfo{
	AccessNone: {
		syncBefore: driver.SNone, syncAfter: driver.SNone,
		accessBefore: driver.ANone, accessAfter: driver.ANone,
		layout: driver.LUndefined,
	},
	AccessComputeShaderRead: {
		syncAfter: driver.SComputeShading, accessAfter: driver.AShaderRead,
		layout: driver.LShaderRead, imageUsage: driver.UShaderSample, bufferUsage: driver.UShaderRead,
	},
	AccessComputeShaderWrite: {
		syncAfter: driver.SComputeShading, accessAfter: driver.AShaderWrite,
		layout: driver.LCommon, imageUsage: driver.UShaderWrite, bufferUsage: driver.UShaderWrite,
	},
	AccessVertexShaderRead: {
		syncAfter: driver.SVertexShading, accessAfter: driver.AShaderRead,
		layout: driver.LShaderRead, imageUsage: driver.UShaderSample, bufferUsage: driver.UShaderRead,
	},
	AccessFragmentShaderRead: {
		syncAfter: driver.SFragmentShading, accessAfter: driver.AShaderRead,
		layout: driver.LShaderRead, imageUsage: driver.UShaderSample, bufferUsage: driver.UShaderRead,
	},
	AccessColorAttachmentWrite: {
		syncAfter: driver.SColorOutput, accessAfter: driver.AColorWrite,
		layout: driver.LColorTarget, imageUsage: driver.URenderTarget,
	},
	AccessColorAttachmentRead: {
		syncAfter: driver.SColorOutput, accessAfter: driver.AColorRead,
		layout: driver.LColorTarget, imageUsage: driver.URenderTarget,
	},
	AccessDepthAttachmentWrite: {
		syncAfter: driver.SDSOutput, accessAfter: driver.ADSWrite,
		layout: driver.LDSTarget, imageUsage: driver.URenderTarget,
	},
	AccessDepthAttachmentWriteStencilReadOnly: {
		syncAfter: driver.SDSOutput, accessAfter: driver.ADSWrite | driver.ADSRead,
		layout: driver.LDSTarget, imageUsage: driver.URenderTarget,
	},
	AccessDepthAttachmentRead: {
		syncAfter: driver.SDSOutput, accessAfter: driver.ADSRead,
		layout: driver.LDSRead, imageUsage: driver.URenderTarget,
	},
	AccessTransferRead: {
		syncAfter: driver.SCopy, accessAfter: driver.ACopyRead,
		layout: driver.LCopySrc,
	},
	AccessTransferWrite: {
		syncAfter: driver.SCopy, accessAfter: driver.ACopyWrite,
		layout: driver.LCopyDst,
	},
	AccessVertexBufferRead: {
		syncAfter: driver.SVertexInput, accessAfter: driver.AVertexBufRead,
		layout: driver.LUndefined, bufferUsage: driver.UVertexData,
	},
	AccessIndexBufferRead: {
		syncAfter: driver.SVertexInput, accessAfter: driver.AIndexBufRead,
		layout: driver.LUndefined, bufferUsage: driver.UIndexData,
	},
	AccessPresent: {
		syncAfter: driver.SNone, accessAfter: driver.ANone,
		layout: driver.LPresent,
	},
}

// lookupAccess resolves a, returning ErrUsageMismatch if a is not
// present in accessTable — an unknown access mask is a fatal
// programmer error per spec.md §4.2.
func lookupAccess(a AccessState) (accessInfo, error) {
	info, ok := accessTable[a]
	if !ok {
		return accessInfo{}, ErrUsageMismatch
	}
	return info, nil
}

// imageUsageFor returns the driver.Usage flag implied by a, for
// accumulation onto a Created image resource's usage flags.
func imageUsageFor(a AccessState) (driver.Usage, error) {
	info, err := lookupAccess(a)
	if err != nil {
		return 0, err
	}
	return info.imageUsage, nil
}

// bufferUsageFor returns the driver.Usage flag implied by a, for
// accumulation onto a Created buffer resource's usage flags.
func bufferUsageFor(a AccessState) (driver.Usage, error) {
	info, err := lookupAccess(a)
	if err != nil {
		return 0, err
	}
	return info.bufferUsage, nil
}

// isReadAccess reports whether a is a read-only access state.
func isReadAccess(a AccessState) bool {
	switch a {
	case AccessComputeShaderRead, AccessVertexShaderRead, AccessFragmentShaderRead,
		AccessColorAttachmentRead, AccessDepthAttachmentRead, AccessTransferRead,
		AccessVertexBufferRead, AccessIndexBufferRead:
		return true
	}
	return false
}

// isWriteAccess reports whether a is a write-only access state.
func isWriteAccess(a AccessState) bool {
	switch a {
	case AccessComputeShaderWrite, AccessColorAttachmentWrite, AccessDepthAttachmentWrite,
		AccessDepthAttachmentWriteStencilReadOnly, AccessTransferWrite:
		return true
	}
	return false
}

// isRasterAccess reports whether a is restricted to attachment
// access kinds, required by Pass.RasterRead/RasterWrite.
func isRasterAccess(a AccessState) bool {
	switch a {
	case AccessColorAttachmentRead, AccessColorAttachmentWrite,
		AccessDepthAttachmentRead, AccessDepthAttachmentWrite,
		AccessDepthAttachmentWriteStencilReadOnly:
		return true
	}
	return false
}
