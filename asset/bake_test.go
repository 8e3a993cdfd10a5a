// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBakeWritesAndIsBakedReportsIt(t *testing.T) {
	dir := t.TempDir()
	uuid := UUID(0x42)

	if IsBaked(dir, uuid, KindMesh) {
		t.Fatal("IsBaked: want false before Bake, have true")
	}
	if err := Bake(dir, uuid, KindMesh, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if !IsBaked(dir, uuid, KindMesh) {
		t.Fatal("IsBaked: want true after Bake, have false")
	}

	data, err := os.ReadFile(filepath.Join(dir, MeshFileName(uuid)))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("baked file contents:\nhave %q\nwant %q", data, "payload")
	}
}

func TestBakeSkipsWhenAlreadyBaked(t *testing.T) {
	dir := t.TempDir()
	uuid := UUID(0x7)

	if err := Bake(dir, uuid, KindTexture, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := Bake(dir, uuid, KindTexture, []byte("second")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TextureFileName(uuid)))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Fatalf("Bake: re-bake overwrote existing file:\nhave %q\nwant %q", data, "first")
	}
}

func TestBakeLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	uuid := UUID(0x99)
	if err := Bake(dir, uuid, KindMaterial, []byte("m")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, MaterialFileName(uuid)+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("Bake: temp file still present: %v", err)
	}
}
