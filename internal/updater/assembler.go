package updater

import (
	"context"
	"fmt"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

// Assembler builds the document written for a freshly extracted page.
type Assembler struct {
	source string
	lookup film.CodeLookup
	clock  film.Clock
}

// NewAssembler constructs an Assembler. A nil lookup disables enrichment.
func NewAssembler(source string, lookup film.CodeLookup, clock film.Clock) *Assembler {
	if source == "" {
		source = film.DefaultSource
	}
	return &Assembler{source: source, lookup: lookup, clock: clock}
}

// Assemble returns an update-only record when the URL is already stored and a
// full record otherwise. Full records are enriched from the code lookup when
// the page produced a search code.
func (a *Assembler) Assemble(
	ctx context.Context,
	url string,
	fields film.Fields,
	exists bool,
) (film.Document, error) {
	if exists {
		return film.UpdateRecord{
			From:       a.source,
			URL:        url,
			Count:      fields.Count,
			Tags:       fields.Tags,
			UpdateDate: a.clock.Now(),
		}, nil
	}

	models, title := fields.Models, fields.Title
	if fields.SearchCode != nil && a.lookup != nil {
		info, err := a.lookup.Lookup(ctx, *fields.SearchCode)
		if err != nil {
			return nil, fmt.Errorf("lookup code %s: %w", *fields.SearchCode, err)
		}
		if info.Model != nil {
			models = *info.Model
		}
		if info.Title != nil {
			title = *info.Title
		}
	}

	return film.Record{
		From:       a.source,
		URL:        url,
		Code:       fields.Code,
		SearchCode: fields.SearchCode,
		Count:      fields.Count,
		ImgURL:     fields.ImgURL,
		Models:     models,
		Title:      title,
		Tags:       fields.Tags,
		UpdateDate: a.clock.Now(),
	}, nil
}
