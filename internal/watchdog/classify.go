package watchdog

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"

	"github.com/openso2/camctl/internal/specs"
)

// Product identifies one of the acquisition data products.
type Product string

const (
	ProductOnBand  Product = "on_band"
	ProductOffBand Product = "off_band"
	ProductSpectra Product = "spectra"
)

// Products lists all data products in a fixed order.
var Products = []Product{ProductOnBand, ProductOffBand, ProductSpectra}

// Classifier matches acquisition filenames against the instrument's naming
// convention and reports which data products they belong to. Image filenames
// carry the filter marker at a fixed underscore-delimited position, spectrum
// filenames carry the co-add marker the same way.
type Classifier struct {
	patterns map[Product]*re2.Regexp
}

// NewClassifier builds a classifier from the camera and spectrometer specs.
func NewClassifier(cam *specs.CameraSpecs, spec *specs.SpecSpecs) (*Classifier, error) {
	c := &Classifier{patterns: make(map[Product]*re2.Regexp, len(Products))}

	onID, err := cam.FilterID("on")
	if err != nil {
		return nil, err
	}
	offID, err := cam.FilterID("off")
	if err != nil {
		return nil, err
	}

	for product, m := range map[Product]struct {
		marker string
		loc    int
	}{
		ProductOnBand:  {onID, cam.FileFilterLoc},
		ProductOffBand: {offID, cam.FileFilterLoc},
		ProductSpectra: {spec.FileCoadd, spec.FileCoaddLoc},
	} {
		if m.marker == "" {
			return nil, fmt.Errorf("no filename marker defined for %s", product)
		}
		pat, err := re2.Compile(componentPattern(m.marker, m.loc))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s pattern: %w", product, err)
		}
		c.patterns[product] = pat
	}

	return c, nil
}

// componentPattern anchors marker inside the loc-th underscore-delimited
// filename component.
func componentPattern(marker string, loc int) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < loc; i++ {
		b.WriteString("[^_]*_")
	}
	b.WriteString("[^_]*")
	b.WriteString(re2.QuoteMeta(marker))
	return b.String()
}

// Match reports which product the filename belongs to, if any.
func (c *Classifier) Match(name string) (Product, bool) {
	for _, product := range Products {
		if c.patterns[product].MatchString(name) {
			return product, true
		}
	}
	return "", false
}

// Classify reports which products appear among the given filenames.
func (c *Classifier) Classify(names []string) map[Product]bool {
	seen := make(map[Product]bool, len(Products))
	for _, product := range Products {
		seen[product] = false
	}
	for _, name := range names {
		if product, ok := c.Match(name); ok {
			seen[product] = true
		}
	}
	return seen
}
