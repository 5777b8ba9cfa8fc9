// Package svg rewrites the profile card themes in place. The themes are
// hand-drawn SVG documents; each statistic lands in a fixed document-order
// <tspan> slot so the drawing itself never has to be regenerated.
package svg

import (
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/dustin/go-humanize"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/config"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
)

// Values is everything a theme displays.
type Values struct {
	Repos        int
	Contributed  int
	Stars        int
	Commits      int
	Issues       int
	PullRequests int
	LOCNet       int
	LOCAdded     int
	LOCDeleted   int
}

// Render overwrites the slot tspans of the document at path and writes it
// back in place.
func Render(path string, slots config.Slots, v Values) error {
	logging.Render("rendering %s", path)

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		logging.RenderError("parse %s: %v", path, err)
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tspans := doc.FindElements("//tspan")
	if len(tspans) <= slots.Max() {
		logging.RenderError("%s has %d tspans, need %d", path, len(tspans), slots.Max()+1)
		return fmt.Errorf("%s has %d tspans, slot layout needs at least %d", path, len(tspans), slots.Max()+1)
	}

	tspans[slots.Repos].SetText(comma(v.Repos))
	tspans[slots.Contributed].SetText(comma(v.Contributed))
	tspans[slots.Stars].SetText(comma(v.Stars))
	tspans[slots.Commits].SetText(comma(v.Commits))
	tspans[slots.Issues].SetText(comma(v.Issues))
	tspans[slots.PullReqs].SetText(comma(v.PullRequests))
	tspans[slots.LOCNet].SetText(comma(v.LOCNet))
	tspans[slots.LOCAdded].SetText(comma(v.LOCAdded) + "++")
	tspans[slots.LOCDeleted].SetText(comma(v.LOCDeleted) + "--")

	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Inspect lists the index and current text of every tspan so slot indices
// can be audited against a theme.
func Inspect(path string, w io.Writer) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, el := range doc.FindElements("//tspan") {
		fmt.Fprintf(w, "%d: %s\n", i, el.Text())
	}
	return nil
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}
