package pricing

import "math"

// ─────────────────────────────────────────────
// Pricing Engine
//
// Pure computation: a price schedule plus a cart of extras in, an
// itemised breakdown out. No I/O, no clock, no hidden state — the same
// schedule and cart always produce the same numbers.
// ─────────────────────────────────────────────

const (
	// DefaultColor is the envelope/paper colour that carries no surcharge.
	DefaultColor = "White"

	// NoScent disables the scent line.
	NoScent = "None"

	// discountedPhotoPrice is the charge for the single reduced-price photo
	// in the 3-4 photo band. Historical fixed value (80% of the original
	// 10-credit photo price); postcards compute the same discount from the
	// scheduled unit instead.
	discountedPhotoPrice = 8
)

// Schedule is the current set of named prices, in whole credits.
// Sourced from the settings provider; read-only here.
type Schedule struct {
	LetterBase     int64 // base letter price, shipping included
	ColorSurcharge int64 // per non-default colour choice (envelope, paper)
	PhotoUnit      int64
	DocumentUnit   int64
	PostcardUnit   int64
	ScentPrice     int64 // flat, not quantity-based
	CalendarPrice  int64
	UnlockPrice    int64 // pay-to-reveal price for incoming letter photos
}

// Cart describes one letter order's extras. Never mutated by the engine;
// negative counts are treated as zero.
type Cart struct {
	EnvelopeColor   string
	PaperColor      string
	Scent           string
	PhotoCount      int64
	DocumentCount   int64
	PostcardCount   int64
	IncludeCalendar bool
}

// CalendarRule selects which counts qualify the bundled calendar as free.
// The two call sites of the original product disagree (photos only at order
// creation, any extras on the review screen); both behaviours are kept until
// product settles on one.
type CalendarRule int

const (
	// CalendarFreeByPhotos grants a free calendar when PhotoCount >= 3.
	CalendarFreeByPhotos CalendarRule = iota

	// CalendarFreeByExtras grants a free calendar when
	// PhotoCount + DocumentCount + PostcardCount >= 3.
	CalendarFreeByExtras
)

// Line item keys, in breakdown order.
const (
	LineLetter    = "letter"
	LinePhotos    = "photos"
	LineDocuments = "documents"
	LinePostcards = "postcards"
	LineScent     = "scent"
	LineCalendar  = "calendar"
	LineShipping  = "shipping"
)

// Line is one priced item of an order.
type Line struct {
	Key      string `json:"key"`
	Quantity int64  `json:"quantity"`
	Amount   int64  `json:"amount"`
}

// Breakdown is the itemised result: per-line amounts plus the grand total.
type Breakdown struct {
	Lines []Line `json:"lines"`
	Total int64  `json:"total"`
}

// Amount returns the amount of the line with the given key, or 0.
func (b Breakdown) Amount(key string) int64 {
	for _, l := range b.Lines {
		if l.Key == key {
			return l.Amount
		}
	}
	return 0
}

// ComputeOrderPrice produces the itemised, deterministic total for a cart.
// Lines always appear in the same order: letter, photos, documents,
// postcards, scent, calendar (when requested), shipping.
func ComputeOrderPrice(sch Schedule, cart Cart, rule CalendarRule) Breakdown {
	var lines []Line

	photos := nonNegative(cart.PhotoCount)
	documents := nonNegative(cart.DocumentCount)
	postcards := nonNegative(cart.PostcardCount)

	// Base letter: each non-default colour choice triggers its own surcharge.
	letter := sch.LetterBase
	if cart.EnvelopeColor != "" && cart.EnvelopeColor != DefaultColor {
		letter += sch.ColorSurcharge
	}
	if cart.PaperColor != "" && cart.PaperColor != DefaultColor {
		letter += sch.ColorSurcharge
	}
	lines = append(lines, Line{Key: LineLetter, Quantity: 1, Amount: letter})

	lines = append(lines, Line{
		Key:      LinePhotos,
		Quantity: photos,
		Amount:   tieredPrice(photos, sch.PhotoUnit, discountedPhotoPrice),
	})

	// Documents are linear, no volume tier.
	lines = append(lines, Line{
		Key:      LineDocuments,
		Quantity: documents,
		Amount:   documents * sch.DocumentUnit,
	})

	lines = append(lines, Line{
		Key:      LinePostcards,
		Quantity: postcards,
		Amount:   tieredPrice(postcards, sch.PostcardUnit, roundedDiscount(sch.PostcardUnit)),
	})

	if cart.Scent != "" && cart.Scent != NoScent {
		lines = append(lines, Line{Key: LineScent, Quantity: 1, Amount: sch.ScentPrice})
	}

	if cart.IncludeCalendar {
		calendar := sch.CalendarPrice
		if calendarFree(photos, documents, postcards, rule) {
			calendar = 0
		}
		lines = append(lines, Line{Key: LineCalendar, Quantity: 1, Amount: calendar})
	}

	// Shipping is bundled into the base price.
	lines = append(lines, Line{Key: LineShipping, Quantity: 1, Amount: 0})

	var total int64
	for _, l := range lines {
		total += l.Amount
	}
	return Breakdown{Lines: lines, Total: total}
}

// ─────────────────────────────────────────────
// Volume tiers
// ─────────────────────────────────────────────

// tieredPrice applies the volume bands for repeatable extras (photos,
// postcards). The bands are mutually exclusive and checked highest first,
// so a quantity of exactly 10 never falls into the 5-9 band:
//
//	n >= 10  → two items free
//	n >= 5   → one item free
//	n == 3,4 → one item at the discounted price, the rest at full price
//	else     → linear
func tieredPrice(n, unit, discounted int64) int64 {
	switch {
	case n >= 10:
		return (n - 2) * unit
	case n >= 5:
		return (n - 1) * unit
	case n == 3 || n == 4:
		return (n-1)*unit + discounted
	default:
		return n * unit
	}
}

// roundedDiscount is 80% of the unit, rounded to the nearest whole credit.
func roundedDiscount(unit int64) int64 {
	return int64(math.Round(float64(unit) * 0.8))
}

func calendarFree(photos, documents, postcards int64, rule CalendarRule) bool {
	switch rule {
	case CalendarFreeByExtras:
		return photos+documents+postcards >= 3
	default:
		return photos >= 3
	}
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
