package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RecipeCard holds the printable fields of a recipe.
type RecipeCard struct {
	Title        string
	Author       string
	Description  string
	Ingredients  []string
	Instructions []string
	PrepTime     int
	CookTime     int
	Servings     int
	MealType     string
}

// PDFExporter renders recipe cards into printable PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a single-recipe PDF card.
func (e *PDFExporter) Render(card RecipeCard) ([]byte, error) {
	if strings.TrimSpace(card.Title) == "" {
		return nil, fmt.Errorf("recipe card requires a title")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, card.Title, "", "C", false)

	if card.Author != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, "by "+card.Author, "", "C", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	meta := fmt.Sprintf("%s  |  prep %d min  |  cook %d min  |  serves %d",
		strings.Title(card.MealType), card.PrepTime, card.CookTime, card.Servings)
	pdf.MultiCell(0, 6, meta, "", "C", false)
	pdf.Ln(4)

	if card.Description != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, card.Description, "", "L", false)
		pdf.Ln(4)
	}

	e.section(pdf, "Ingredients")
	for _, item := range card.Ingredients {
		pdf.MultiCell(0, 6, "- "+item, "", "L", false)
	}
	pdf.Ln(4)

	e.section(pdf, "Instructions")
	for i, step := range card.Instructions {
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, step), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render recipe card: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
}
