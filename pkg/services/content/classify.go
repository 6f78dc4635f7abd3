package content

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// PiratesViewingFee is shown for the feature presentation
const PiratesViewingFee = int64(10)

var documentaryMarkers = []string{
	"documentary",
	"educational",
	"history",
	"tech talk",
	"presentation",
	"pirates",
	"silicon valley",
}

// Classify decides from its title whether a video earns at the documentary
// rate. The viewing fee is informational and never charged.
func Classify(title string) entities.Classification {
	folded := cases.Fold().String(title)

	var c entities.Classification
	for _, marker := range documentaryMarkers {
		if strings.Contains(folded, marker) {
			c.IsDocumentary = true
			break
		}
	}
	if strings.Contains(folded, "pirates") && strings.Contains(folded, "silicon valley") {
		c.ViewingFee = PiratesViewingFee
	}
	return c
}
