package service

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
)

// pageMargin is kept free on every side of an A4 page, in points
const pageMargin = 20.0

// documentBuilder lays out one card image per A4 portrait page
type documentBuilder struct {
	pdf   *fpdf.Fpdf
	pages int
}

func newDocumentBuilder() *documentBuilder {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &documentBuilder{pdf: pdf}
}

// fitToPage shrinks w x h to fit inside the page minus margins, never enlarging,
// and returns the centered placement
func fitToPage(w, h, pageW, pageH float64) (x, y, fw, fh float64) {
	maxW := pageW - 2*pageMargin
	maxH := pageH - 2*pageMargin
	fw, fh = w, h
	if fw > maxW {
		fh = fh * maxW / fw
		fw = maxW
	}
	if fh > maxH {
		fw = fw * maxH / fh
		fh = maxH
	}
	return (pageW - fw) / 2, (pageH - fh) / 2, fw, fh
}

// AddPage appends a page holding the PNG card of the given pixel size.
// One pixel is laid out as one point before fitting.
func (d *documentBuilder) AddPage(pngData []byte, width, height int) error {
	d.pages++
	name := fmt.Sprintf("card-%d", d.pages)

	d.pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngData))

	pageW, pageH := d.pdf.GetPageSize()
	x, y, w, h := fitToPage(float64(width), float64(height), pageW, pageH)
	d.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")

	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("failed to add page %d: %w", d.pages, err)
	}
	return nil
}

// PageCount is the number of pages added so far
func (d *documentBuilder) PageCount() int {
	return d.pdf.PageCount()
}

// Finalize writes the document into w
func (d *documentBuilder) Finalize(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}
	return nil
}
