package catalog

import "fmt"

// Timing is when a supplement should be taken.
type Timing string

const (
	TimingMorningFasting Timing = "morning-fasting"
	TimingWithBreakfast  Timing = "with-breakfast"
	TimingBeforeMeal     Timing = "before-meal"
	TimingWithFood       Timing = "with-food"
	TimingEvening        Timing = "evening"
	TimingNightBeforeBed Timing = "night-before-bed"
)

var timingLabels = map[Timing]string{
	TimingMorningFasting: "صبح (ناشتا)",
	TimingWithBreakfast:  "همراه صبحانه",
	TimingBeforeMeal:     "قبل از غذا",
	TimingWithFood:       "همراه غذا",
	TimingEvening:        "عصر",
	TimingNightBeforeBed: "شب (قبل از خواب)",
}

// Valid reports whether t is one of the known timings.
func (t Timing) Valid() bool {
	_, ok := timingLabels[t]
	return ok
}

// Label returns the storefront display label.
func (t Timing) Label() string {
	return timingLabels[t]
}

// Category groups products on the catalog page.
type Category string

const (
	CategoryBeauty   Category = "beauty"
	CategoryHealth   Category = "health"
	CategoryVitality Category = "vitality"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBeauty, CategoryHealth, CategoryVitality:
		return true
	}
	return false
}

// ParseCategory converts a query value to a Category. The empty string
// means no category filter and is returned as-is.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if c == "" || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Product is a purchasable supplement. Products are immutable once the
// catalog is loaded.
type Product struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Subtitle       string   `json:"subtitle" yaml:"subtitle"`
	Description    string   `json:"description" yaml:"description"`
	Benefits       []string `json:"benefits" yaml:"benefits"`
	Ingredients    []string `json:"ingredients" yaml:"ingredients"`
	Dosage         string   `json:"dosage" yaml:"dosage"`
	Timing         Timing   `json:"timing" yaml:"timing"`
	Price          int64    `json:"price" yaml:"price"`
	Duration       string   `json:"duration" yaml:"duration"`
	Category       Category `json:"category" yaml:"category"`
	Rating         float64  `json:"rating" yaml:"rating"`
	Reviews        int      `json:"reviews" yaml:"reviews"`
	Stock          int      `json:"stock" yaml:"stock"`
	ExpirationDate string   `json:"expiration_date" yaml:"expiration_date"`
	Points         int      `json:"points" yaml:"points"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

func (p Product) validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	case p.Name == "":
		return fmt.Errorf("%w: %s: missing name", ErrInvalidProduct, p.ID)
	case !p.Timing.Valid():
		return fmt.Errorf("%w: %s: unknown timing %q", ErrInvalidProduct, p.ID, p.Timing)
	case !p.Category.Valid():
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidProduct, p.ID, p.Category)
	case p.Price < 0:
		return fmt.Errorf("%w: %s: negative price", ErrInvalidProduct, p.ID)
	case p.Stock < 0:
		return fmt.Errorf("%w: %s: negative stock", ErrInvalidProduct, p.ID)
	case p.Points < 0:
		return fmt.Errorf("%w: %s: negative points", ErrInvalidProduct, p.ID)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("%w: %s: rating %.1f out of range", ErrInvalidProduct, p.ID, p.Rating)
	}
	return nil
}
