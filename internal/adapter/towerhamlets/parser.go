package towerhamlets

import (
	"bytes"
	"fmt"
	"strings"

	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/PuerkitoBio/goquery"
)

// Row one parsed row of the availability table
type Row struct {
	Time   string // HH:MM
	Spaces int
}

// ParseTable reads the first table of the booking page. found=false when the page has no table.
// Rows without a recognisable "7pm"-style time header are skipped; a row with no court labels has 0 spaces.
func ParseTable(body []byte) (rows []Row, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, false, nil
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		header := tr.Find("th.time").First()
		if header.Length() == 0 {
			return
		}
		clock, ok := slotutil.ParseHourMeridiem(strings.TrimSpace(header.Text()))
		if !ok {
			return
		}
		spaces := 0
		tr.Find("label.court").Each(func(_ int, label *goquery.Selection) {
			html, err := goquery.OuterHtml(label)
			if err != nil || strings.Contains(html, "disabled") {
				return
			}
			spaces++
		})
		rows = append(rows, Row{Time: clock, Spaces: spaces})
	})
	return rows, true, nil
}

// ToSlots rows of one venue page as canonical slots
func ToSlots(rows []Row, date, location string) []model.CanonicalSlot {
	slots := make([]model.CanonicalSlot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, model.CanonicalSlot{
			Date:     date,
			Time:     r.Time + ":00",
			Location: location,
			Spaces:   r.Spaces,
		})
	}
	return slots
}
