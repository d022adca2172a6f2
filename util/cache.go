// util/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeCompressed writes obj to w as msgpack compressed with zstd.
func EncodeCompressed(w io.Writer, obj any) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}

	if err := msgpack.NewEncoder(zw).Encode(obj); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeCompressed reads an object written by EncodeCompressed.
func DecodeCompressed(r io.Reader, obj any) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	return msgpack.NewDecoder(zr).Decode(obj)
}

// MarshalCompressed is a convenience wrapper around EncodeCompressed that
// returns the encoded bytes.
func MarshalCompressed(obj any) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeCompressed(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnmarshalCompressed(b []byte, obj any) error {
	return DecodeCompressed(bytes.NewReader(b), obj)
}

///////////////////////////////////////////////////////////////////////////
// Cache

// CacheDir is the directory cached objects are stored in; if empty, a
// directory under os.UserCacheDir is used.
var CacheDir string

func fullCachePath(path string) (string, error) {
	if CacheDir != "" {
		return filepath.Join(CacheDir, path), nil
	}
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, "aman", path), nil
}

// CacheStoreObject saves obj at the given path relative to the cache
// directory.
func CacheStoreObject(path string, obj any) error {
	path, err := fullCachePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := EncodeCompressed(f, obj); err != nil {
		return err
	}
	return f.Close()
}

// CacheRetrieveObject loads an object saved by CacheStoreObject,
// returning the time it was written.
func CacheRetrieveObject(path string, obj any) (time.Time, error) {
	path, err := fullCachePath(path)
	if err != nil {
		return time.Time{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	return fi.ModTime(), DecodeCompressed(f, obj)
}
