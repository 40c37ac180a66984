// Package pdfexport assembles rendered page rasters into a single PDF,
// one page image per PDF page.
package pdfexport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// WritePDF writes the page PNGs to w as a PDF. Page order follows slice
// order. pdfcpu sizes each PDF page to its image, so the rasters arrive
// already laid out at their final dimensions.
func WritePDF(w io.Writer, pages [][]byte) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to export")
	}

	// pdfcpu detects image formats by sniffing readers, but staging
	// through files keeps memory flat for multi-page exports.
	tempDir, err := os.MkdirTemp("", "cardforge-pdf-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	paths := make([]string, 0, len(pages))
	for i, blob := range pages {
		p := filepath.Join(tempDir, fmt.Sprintf("page-%04d.png", i))
		if err := os.WriteFile(p, blob, 0o644); err != nil {
			return fmt.Errorf("stage page %d: %w", i+1, err)
		}
		paths = append(paths, p)
	}

	readers := make([]io.Reader, 0, len(paths))
	closers := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open staged page %d: %w", i+1, err)
		}
		readers = append(readers, f)
		closers = append(closers, f)
	}

	if err := api.ImportImages(nil, w, readers, nil, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("import pages: %w", err)
	}
	return nil
}

// WritePDFFile writes the pages to a PDF at path, removing the partial
// file on failure.
func WritePDFFile(path string, pages [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	werr := WritePDF(f, pages)
	cerr := f.Close()
	if werr != nil {
		os.Remove(path)
		return werr
	}
	if cerr != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, cerr)
	}
	return nil
}
