package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/itinerary"
	"github.com/routewise/routewise/internal/models"
)

// Service renders the itinerary for sharing and printing.
type Service struct {
	config *common.ExportConfig
	logger arbor.ILogger
}

// NewService creates an export service.
func NewService(config *common.ExportConfig, logger arbor.ILogger) *Service {
	if config == nil {
		defaults := common.NewDefaultConfig().Export
		config = &defaults
	}
	return &Service{
		config: config,
		logger: logger,
	}
}

// HTML renders a standalone HTML document: trip title, one section per day,
// places in display order. Place notes are treated as Markdown.
func (s *Service) HTML(ctx context.Context, state *models.ItineraryState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("itinerary state is required")
	}
	state = sortedCopy(state)

	var sb strings.Builder
	sb.WriteString(documentHead)
	sb.WriteString("<body>\n<div class=\"content\">\n")
	sb.WriteString("<h1>" + escapeHTML(displayTitle(state)) + "</h1>\n")

	for i := range state.Days {
		day := &state.Days[i]
		sb.WriteString("<section class=\"day\">\n")
		heading := fmt.Sprintf("Day %d", i+1)
		if day.Title != "" {
			heading += " — " + day.Title
		}
		sb.WriteString("<h2>" + escapeHTML(heading) + "</h2>\n")
		sb.WriteString("<p class=\"date\">" + escapeHTML(day.Date.Format("Monday, January 2, 2006")) + "</p>\n")

		if len(day.Places) == 0 {
			sb.WriteString("<p class=\"empty\">No places scheduled.</p>\n")
		} else {
			sb.WriteString("<ol class=\"places\">\n")
			for j := range day.Places {
				s.writePlaceHTML(&sb, &day.Places[j])
			}
			sb.WriteString("</ol>\n")
		}
		sb.WriteString("</section>\n")
	}

	sb.WriteString("</div>\n</body>\n</html>\n")

	s.logger.Debug().
		Int("days", len(state.Days)).
		Int("places", state.PlaceCount()).
		Msg("Rendered HTML itinerary")
	return []byte(sb.String()), nil
}

func (s *Service) writePlaceHTML(sb *strings.Builder, place *models.ItineraryPlace) {
	sb.WriteString("<li class=\"place\">\n")
	if place.ScheduledTime != "" {
		sb.WriteString("<span class=\"time\">" + escapeHTML(place.ScheduledTime) + "</span> ")
	}
	sb.WriteString("<strong>" + escapeHTML(place.Name) + "</strong>\n")
	if place.Address != "" {
		sb.WriteString("<p class=\"address\">" + escapeHTML(place.Address) + "</p>\n")
	}
	if place.Category != "" || place.Rating > 0 {
		meta := place.Category
		if place.Rating > 0 {
			if meta != "" {
				meta += " · "
			}
			meta += fmt.Sprintf("%.1f", place.Rating)
		}
		sb.WriteString("<p class=\"meta\">" + escapeHTML(meta) + "</p>\n")
	}
	if place.Notes != "" {
		sb.WriteString("<div class=\"notes\">" + s.renderNotes(place.Notes) + "</div>\n")
	}
	sb.WriteString("</li>\n")
}

// renderNotes converts place notes from Markdown to HTML.
func (s *Service) renderNotes(notes string) string {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(notes), &buf); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to render place notes as Markdown")
		return "<pre>" + escapeHTML(notes) + "</pre>"
	}
	return buf.String()
}

// PDF renders a printable itinerary on the configured page size.
func (s *Service) PDF(ctx context.Context, state *models.ItineraryState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("itinerary state is required")
	}
	state = sortedCopy(state)

	pdf := fpdf.New("P", "mm", s.config.PageSize, "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, displayTitle(state), "", "L", false)
	pdf.Ln(4)

	for i := range state.Days {
		day := &state.Days[i]

		pdf.SetFont("Arial", "B", 13)
		heading := fmt.Sprintf("Day %d", i+1)
		if day.Title != "" {
			heading += " - " + day.Title
		}
		pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, day.Date.Format("Monday, January 2, 2006"), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		if len(day.Places) == 0 {
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 6, "No places scheduled.", "", 1, "L", false, 0, "")
		}
		for j := range day.Places {
			place := &day.Places[j]
			pdf.SetFont("Arial", "", 10)
			line := place.Name
			if place.ScheduledTime != "" {
				line = place.ScheduledTime + "  " + line
			}
			if place.Address != "" {
				line += " - " + place.Address
			}
			pdf.MultiCell(0, 6, line, "", "L", false)
			if place.Notes != "" {
				pdf.SetFont("Arial", "I", 9)
				pdf.SetX(pdf.GetX() + 8)
				pdf.MultiCell(0, 5, place.Notes, "", "L", false)
			}
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().
		Int("days", len(state.Days)).
		Int("pdf_size", buf.Len()).
		Msg("Rendered PDF itinerary")
	return buf.Bytes(), nil
}

// sortedCopy clones the state and orders each day's places for display.
func sortedCopy(state *models.ItineraryState) *models.ItineraryState {
	clone := state.Clone()
	for i := range clone.Days {
		itinerary.SortDayPlaces(clone.Days[i].Places)
	}
	return clone
}

func displayTitle(state *models.ItineraryState) string {
	if state.TripTitle != "" {
		return state.TripTitle
	}
	return "My Trip"
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

const documentHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Itinerary</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
      line-height: 1.6;
      color: #333;
      max-width: 800px;
      margin: 0 auto;
      padding: 20px;
      background-color: #f9f9f9;
    }
    .content {
      background-color: #fff;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 1px 3px rgba(0,0,0,0.1);
    }
    h1 { color: #1a1a1a; font-size: 24px; margin-top: 0; border-bottom: 2px solid #eee; padding-bottom: 10px; }
    h2 { color: #2a2a2a; font-size: 20px; margin-top: 24px; }
    .date { color: #888; font-size: 14px; margin-top: -8px; }
    ol.places { padding-left: 24px; margin: 12px 0; }
    li.place { margin: 10px 0; }
    .time { color: #0066cc; font-variant-numeric: tabular-nums; }
    .address { margin: 2px 0; color: #666; font-size: 14px; }
    .meta { margin: 2px 0; color: #888; font-size: 13px; }
    .notes { margin: 4px 0 0 0; font-size: 14px; }
    .notes p { margin: 4px 0; }
    .empty { color: #888; font-style: italic; }
  </style>
</head>
`
