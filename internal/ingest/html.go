package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Inverter monitoring portals commonly offer table exports as HTML pages.
// The first <table> of the document is parsed; header cells come from <th>
// elements, or from the first row when the table has none.

func readHTMLGrid(src io.Reader) (grid, error) {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return grid{}, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return grid{}, fmt.Errorf("no table in document")
	}

	var g grid
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if g.header == nil {
			g.header = normalizeHeader(cells)
			return
		}
		g.rows = append(g.rows, cells)
	})

	if g.header == nil {
		return grid{}, fmt.Errorf("table has no rows")
	}
	return g, nil
}

// ReadProductionHTML parses an HTML production export, accepting the same
// layouts as ReadProduction.
func (r *Reader) ReadProductionHTML(src io.Reader, inverterID string) ([]contracts.RawProductionRow, []string, error) {
	g, err := readHTMLGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("production: %w", err)
	}
	if g.hasColumn(contracts.ColInverterID) {
		return r.productionLong(g)
	}
	return r.productionWide(g, inverterID)
}

// ReadCharacterizationHTML parses an HTML characterization export, accepting
// the same layouts as ReadCharacterization.
func (r *Reader) ReadCharacterizationHTML(src io.Reader, inverterID string) ([]contracts.RawCharacterizationRow, []string, error) {
	g, err := readHTMLGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("characterization: %w", err)
	}
	if g.hasColumn(contracts.ColNominalPower) {
		return r.characterizationContract(g, inverterID)
	}
	return r.characterizationLegacy(g, inverterID)
}

// ReadEnvironmentHTML parses an HTML irradiance export, accepting the same
// layouts as ReadEnvironment.
func (r *Reader) ReadEnvironmentHTML(src io.Reader) ([]contracts.RawEnvironmentRow, []string, error) {
	g, err := readHTMLGrid(src)
	if err != nil {
		return nil, nil, fmt.Errorf("environment: %w", err)
	}
	return r.environmentFromGrid(g)
}
