// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/edsrzf/mmap-go"
)

// Loader decodes one asset's raw (unprocessed) form from its source
// representation, e.g. a glTF document or an encoded image file
// (asset/loader_gltf.go, asset/loader_image.go). Grounded on
// asset_manager.rs's `AssetLoader` trait.
type Loader interface {
	URI() string
	AssetKind() Kind
	Load() (*LoadedAsset, error)
}

// LoadedAsset is a Loader's output: the raw, unprocessed form of
// exactly one of Mesh or Texture, tagged by Kind (spec.md §3.2 "Raw
// asset"; Go substitutes the original's `dyn RawAsset` trait object
// with an explicit kind tag, as types.go already does for Kind more
// broadly).
type LoadedAsset struct {
	URI     string
	Kind    Kind
	Mesh    *MeshRaw
	Texture *TextureRaw
}

// AssetManager owns the registry, the baked-asset directory, and the
// queue of pending loads, orchestrating the three-stage
// join-before-next-stage pipeline (load all, then process all, then
// bake all) — grounded 1:1 on AssetManager::dispatch_load_tasks,
// which the original read in full as join-all/join-all/join-all
// rather than a fully independent per-item pipeline.
// golang.org/x/sync/errgroup stands in for
// `smol::block_on(futures::try_join_all(...))`.
type AssetManager struct {
	registry *Registry
	bakedDir string

	mu        sync.Mutex
	loaders   []Loader
	mmapCache map[string]mmap.MMap
}

// NewAssetManager creates a manager rooted at bakedDir, creating the
// directory if it does not already exist (grounded on
// AssetManager::new's `filesystem::exist_or_create(ProjectFolder::
// Baked)`).
func NewAssetManager(registry *Registry, bakedDir string) (*AssetManager, error) {
	if err := os.MkdirAll(bakedDir, 0o755); err != nil {
		return nil, fmt.Errorf("asset: create baked folder: %w", err)
	}
	return &AssetManager{
		registry:  registry,
		bakedDir:  bakedDir,
		mmapCache: make(map[string]mmap.MMap),
	}, nil
}

// Close unmaps every file this manager has mmap'd.
func (m *AssetManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for uri, mm := range m.mmapCache {
		if err := mm.Unmap(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("asset: unmap %s: %w", uri, err)
		}
	}
	m.mmapCache = make(map[string]mmap.MMap)
	return firstErr
}

// LoadAsset either resolves l immediately from its already-baked file
// (mmap, decode, register — no load/process/bake work needed) or, if
// unbaked, queues it for the next DispatchLoadTasks call. The bool
// return reports whether resolution was immediate; when false the
// caller must call DispatchLoadTasks to obtain l's handle. Grounded
// on AssetManager::load_asset's is_baked branch.
func (m *AssetManager) LoadAsset(l Loader) (Handle, bool, error) {
	uri := l.URI()
	kind := l.AssetKind()
	uuid := RootUUID(uri)

	if IsBaked(m.bakedDir, uuid, kind) {
		h, err := m.loadBaked(uri, uuid, kind)
		return h, true, err
	}

	m.mu.Lock()
	m.loaders = append(m.loaders, l)
	m.mu.Unlock()
	return Handle{}, false, nil
}

func (m *AssetManager) mmapRead(path string) ([]byte, error) {
	m.mu.Lock()
	if mm, ok := m.mmapCache[path]; ok {
		m.mu.Unlock()
		return []byte(mm), nil
	}
	m.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open baked file %s: %w", path, err)
	}
	defer f.Close()

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("asset: mmap baked file %s: %w", path, err)
	}

	m.mu.Lock()
	m.mmapCache[path] = mm
	m.mu.Unlock()
	return []byte(mm), nil
}

// loadBaked mmaps and decodes uri's already-baked file, recursively
// resolving its mesh's material/texture dependents from their own
// baked files, and registers the whole tree into the registry.
func (m *AssetManager) loadBaked(uri string, uuid UUID, kind Kind) (Handle, error) {
	buf, err := m.mmapRead(bakedPath(m.bakedDir, uuid, kind))
	if err != nil {
		return Handle{}, err
	}

	switch kind {
	case KindMesh:
		storage, err := DecodeMesh(buf)
		if err != nil {
			return Handle{}, err
		}
		if err := m.resolveMeshDependents(storage); err != nil {
			return Handle{}, err
		}
		return m.registry.RegisterAsset(uuid, storage).Handle, nil

	case KindTexture:
		storage, err := DecodeTexture(buf)
		if err != nil {
			return Handle{}, err
		}
		h := m.registry.RegisterEmptyAsset()
		m.registry.UpdateTexture(h, uuid, storage)
		return h, nil

	default:
		return Handle{}, fmt.Errorf("asset: loadBaked: unsupported root kind %d", kind)
	}
}

// resolveMeshDependents fills in a Handle for each of storage's
// Material/MaterialTexture Refs (DecodeMesh only recovers their
// uuids) by mmapping and decoding each dependent's own baked file.
func (m *AssetManager) resolveMeshDependents(storage *MeshStorage) error {
	for i, ref := range storage.Materials {
		buf, err := m.mmapRead(bakedPath(m.bakedDir, ref.UUID, KindMaterial))
		if err != nil {
			return err
		}
		mat, err := DecodeMaterial(buf)
		if err != nil {
			return err
		}
		h := m.registry.RegisterEmptyAsset()
		m.registry.UpdateMaterial(h, ref.UUID, mat)
		storage.Materials[i].Handle = h
	}
	for i, ref := range storage.MaterialTextures {
		buf, err := m.mmapRead(bakedPath(m.bakedDir, ref.UUID, KindTexture))
		if err != nil {
			return err
		}
		tex, err := DecodeTexture(buf)
		if err != nil {
			return err
		}
		h := m.registry.RegisterEmptyAsset()
		m.registry.UpdateTexture(h, ref.UUID, tex)
		storage.MaterialTextures[i].Handle = h
	}
	return nil
}

// DispatchLoadTasks drains every loader queued since the last call and
// runs it through the three-stage pipeline, returning one Handle per
// queued loader in submission order. Each stage fully joins before
// the next starts (spec.md §4.9's load/process/bake shape, grounded
// 1:1 on dispatch_load_tasks).
func (m *AssetManager) DispatchLoadTasks(ctx context.Context) ([]Handle, error) {
	m.mu.Lock()
	loaders := m.loaders
	m.loaders = nil
	m.mu.Unlock()

	if len(loaders) == 0 {
		return nil, nil
	}

	loaded := make([]*LoadedAsset, len(loaders))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range loaders {
		i, l := i, l
		g.Go(func() error {
			_ = gctx
			raw, err := l.Load()
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrLoadFailure, l.URI(), err)
			}
			loaded[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	handles := make([]Handle, len(loaded))
	g, gctx = errgroup.WithContext(ctx)
	for i, la := range loaded {
		i, la := i, la
		g.Go(func() error {
			_ = gctx
			switch la.Kind {
			case KindMesh:
				h, err := ProcessMesh(m.registry, la.URI, la.Mesh)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrProcessFailure, la.URI, err)
				}
				handles[i] = h
			case KindTexture:
				ref, err := ProcessTexture(m.registry, RootUUID(la.URI), la.Texture)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrProcessFailure, la.URI, err)
				}
				handles[i] = ref.Handle
			default:
				return fmt.Errorf("%w: %s: unsupported kind %d", ErrProcessFailure, la.URI, la.Kind)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for i, la := range loaded {
		i, la := i, la
		g.Go(func() error {
			_ = gctx
			return m.bakeOne(la.URI, handles[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return handles, nil
}

// bakeOne serializes h's storage (and any material/texture dependents
// it owns) to their content-addressed files under bakedDir.
func (m *AssetManager) bakeOne(uri string, h Handle) error {
	if mesh := m.registry.GetMesh(h); mesh != nil {
		if err := Bake(m.bakedDir, RootUUID(uri), KindMesh, EncodeMesh(mesh)); err != nil {
			return err
		}
		for _, ref := range mesh.Materials {
			if mat := m.registry.GetMaterial(ref.Handle); mat != nil {
				if err := Bake(m.bakedDir, ref.UUID, KindMaterial, EncodeMaterial(mat)); err != nil {
					return err
				}
			}
		}
		for _, ref := range mesh.MaterialTextures {
			if tex := m.registry.GetTexture(ref.Handle); tex != nil {
				if err := Bake(m.bakedDir, ref.UUID, KindTexture, EncodeTexture(tex)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if tex := m.registry.GetTexture(h); tex != nil {
		return Bake(m.bakedDir, RootUUID(uri), KindTexture, EncodeTexture(tex))
	}
	return fmt.Errorf("%w: %s: handle resolves to neither mesh nor texture", ErrBakeFailure, uri)
}
