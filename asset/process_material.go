// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

// ProcessMaterial copies a decoded MaterialRaw into its GPU-ready
// MaterialStorage form and registers it under uuid. The two types are
// field-identical; this is a trivial passthrough, grounded 1:1 on
// asset_process.rs's RawMaterialProcess::run.
func ProcessMaterial(reg *Registry, uuid UUID, raw *MaterialRaw) (Ref, error) {
	h := reg.RegisterEmptyAsset()
	storage := &MaterialStorage{
		Metallic:         raw.Metallic,
		Roughness:        raw.Roughness,
		BaseColor:        raw.BaseColor,
		Emissive:         raw.Emissive,
		TextureMapping:   raw.TextureMapping,
		TextureTransform: raw.TextureTransform,
	}
	reg.UpdateMaterial(h, uuid, storage)
	return Ref{Handle: h, UUID: uuid, Kind: KindMaterial}, nil
}
