package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
)

const (
	labelFontSize = 8
	labelMaxRunes = 40
)

type rgb struct{ r, g, b int }

var categoryColors = map[models.Category]rgb{
	models.CategoryCaption:       {230, 126, 34},
	models.CategoryFootnote:      {127, 140, 141},
	models.CategoryFormula:       {142, 68, 173},
	models.CategoryListItem:      {39, 174, 96},
	models.CategoryPageFooter:    {149, 165, 166},
	models.CategoryPageHeader:    {52, 73, 94},
	models.CategoryPicture:       {241, 196, 15},
	models.CategorySectionHeader: {192, 57, 43},
	models.CategoryTable:         {22, 160, 133},
	models.CategoryText:          {41, 128, 185},
	models.CategoryTitle:         {211, 84, 0},
}

// pdfPage is one page to render over its image.
type pdfPage struct {
	docID string
	page  PageExport
	image *catalog.Image
}

// WritePDF renders the given documents, one PDF page per document page, with
// each box outlined in its category color and labeled with its reading
// position. An empty docIDs renders every document.
func (s *Service) WritePDF(ctx context.Context, w io.Writer, docIDs ...string) error {
	if len(docIDs) == 0 {
		docs, err := s.pages.ListDocuments()
		if err != nil {
			return err
		}
		for _, d := range docs {
			docIDs = append(docIDs, d.DocID)
		}
	}

	var pages []pdfPage
	for _, docID := range docIDs {
		infos, err := s.pages.ListPages(docID)
		if err != nil {
			return err
		}
		for _, info := range infos {
			p, err := s.pageExport(ctx, info, false)
			if err != nil {
				return err
			}
			img, err := s.pages.PageImage(info)
			if err != nil {
				return err
			}
			p.Width, p.Height = img.Width, img.Height
			pages = append(pages, pdfPage{docID: docID, page: p, image: img})
		}
	}
	return renderPDF(w, pages)
}

func renderPDF(w io.Writer, pages []pdfPage) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	labels := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

	for i, p := range pages {
		width, height := float64(p.image.Width), float64(p.image.Height)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})

		if err := drawImage(pdf, fmt.Sprintf("page%d", i), p.image, width, height); err != nil {
			return fmt.Errorf("failed to draw %s page %d: %w", p.docID, p.page.PageNo, err)
		}

		layer := pdf.AddLayer(fmt.Sprintf("Layout (%s page %d)", p.docID, p.page.PageNo), true)
		pdf.BeginLayer(layer)
		pdf.SetFont("Helvetica", "", labelFontSize)
		pdf.SetLineWidth(1)
		for order, box := range p.page.Boxes {
			drawBox(pdf, labels, order+1, box)
		}
		pdf.EndLayer()

		if err := pdf.Error(); err != nil {
			return fmt.Errorf("failed to render %s page %d: %w", p.docID, p.page.PageNo, err)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func drawImage(pdf *fpdf.Fpdf, name string, img *catalog.Image, width, height float64) error {
	data, format := img.Data, strings.ToUpper(img.Format)
	if format != "PNG" && format != "JPEG" && format != "GIF" {
		// fpdf only embeds PNG, JPEG and GIF
		decoded, _, err := image.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return fmt.Errorf("failed to decode %s image: %w", img.Format, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, decoded); err != nil {
			return fmt.Errorf("failed to convert %s image: %w", img.Format, err)
		}
		data, format = buf.Bytes(), "PNG"
	}

	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: format}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	pdf.ImageOptions(name, 0, 0, width, height, false, opts, 0, "")
	return nil
}

func drawBox(pdf *fpdf.Fpdf, labels *encoding.Encoder, order int, box models.Box) {
	c, ok := categoryColors[box.Category]
	if !ok {
		c = rgb{0, 0, 0}
	}
	pdf.SetDrawColor(c.r, c.g, c.b)
	pdf.SetTextColor(c.r, c.g, c.b)

	x, y := box.BBox[0], box.BBox[1]
	pdf.Rect(x, y, box.BBox.Width(), box.BBox.Height(), "D")

	label, err := labels.String(boxLabel(order, box))
	if err != nil {
		label = fmt.Sprintf("%d %s", order, box.Category)
	}
	pdf.Text(x+1, y+labelFontSize, label)
}

// boxLabel is "<order> <category>", followed by the start of the box text.
func boxLabel(order int, box models.Box) string {
	label := fmt.Sprintf("%d %s", order, box.Category)
	text := strings.Join(strings.Fields(box.TextValue()), " ")
	if text == "" {
		return label
	}
	if r := []rune(text); len(r) > labelMaxRunes {
		text = string(r[:labelMaxRunes]) + "..."
	}
	return label + ": " + text
}
