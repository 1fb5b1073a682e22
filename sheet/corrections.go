package sheet

// Corrections accumulates the silent, best-effort adjustments made during a
// write session. The original behaviour surfaced these only through log side
// effects; the report makes them observable to callers as well. A workbook
// owns exactly one report for its lifetime.
type Corrections struct {
	// RowsDropped counts rows discarded because the sheet reached the
	// format's row limit.
	RowsDropped int

	// TruncatedCells counts cells whose text was cut at MaxCellChars.
	TruncatedCells int

	// SanitisedCells counts cells that had characters illegal in the target
	// format stripped out.
	SanitisedCells int

	// FallbackCells counts cells that could not be written with their
	// declared type/format and were written as plain text instead.
	FallbackCells int
}

// Any reports whether any correction fired.
func (c *Corrections) Any() bool {
	return c.RowsDropped > 0 || c.TruncatedCells > 0 || c.SanitisedCells > 0 || c.FallbackCells > 0
}

// Merge folds another report into this one.
func (c *Corrections) Merge(other *Corrections) {
	if other == nil {
		return
	}
	c.RowsDropped += other.RowsDropped
	c.TruncatedCells += other.TruncatedCells
	c.SanitisedCells += other.SanitisedCells
	c.FallbackCells += other.FallbackCells
}
