package kml

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Asset is a file bundled into a KMZ under Name, the href styles use.
type Asset struct {
	Name string
	Path string
}

// WriteKML writes d to path as plain KML.
func WriteKML(path string, d *Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create kml: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return d.Encode(f)
}

// WriteKMZ writes d to path as a KMZ archive holding doc.kml and the given
// assets. Assets whose file does not exist are skipped and reported in
// missing.
func WriteKMZ(path string, d *Document, assets ...Asset) (missing []string, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create kmz: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	doc, err := zw.Create("doc.kml")
	if err != nil {
		return nil, fmt.Errorf("kmz doc.kml: %w", err)
	}
	if err := d.Encode(doc); err != nil {
		return nil, err
	}

	for _, a := range assets {
		ok, err := addAsset(zw, a)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, a.Path)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish kmz: %w", err)
	}
	return missing, nil
}

func addAsset(zw *zip.Writer, a Asset) (bool, error) {
	src, err := os.Open(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kmz asset %s: %w", a.Name, err)
	}
	defer src.Close()

	dst, err := zw.Create(a.Name)
	if err != nil {
		return false, fmt.Errorf("kmz asset %s: %w", a.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return false, fmt.Errorf("kmz asset %s: %w", a.Name, err)
	}
	return true, nil
}
