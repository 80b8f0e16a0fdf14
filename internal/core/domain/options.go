package domain

// NormalizePolicy controls the text normalization pipeline applied after
// format-specific extraction. Line endings are always folded to LF.
type NormalizePolicy struct {
	// CollapseWhitespace folds runs of 2+ horizontal whitespace characters
	// into a single space.
	CollapseWhitespace bool
	// PreserveIndent keeps leading indentation intact while collapsing
	// interior whitespace.
	PreserveIndent bool
	// TrimTrailing removes trailing whitespace per line.
	TrimTrailing bool
	// DropCommaOnlyLines deletes lines consisting only of commas and
	// whitespace.
	DropCommaOnlyLines bool
	// StripTrailingCommas removes a single trailing run of commas per line
	// unless the line carries CSV-like interior structure.
	StripTrailingCommas bool
	// MaxBlankLines caps runs of consecutive blank lines.
	MaxBlankLines int
}

// DefaultNormalizePolicy mirrors the pipeline defaults.
func DefaultNormalizePolicy() NormalizePolicy {
	return NormalizePolicy{
		CollapseWhitespace:  true,
		PreserveIndent:      false,
		TrimTrailing:        true,
		DropCommaOnlyLines:  true,
		StripTrailingCommas: true,
		MaxBlankLines:       2,
	}
}

// ExtractOptions are per-call overrides for a single extraction.
type ExtractOptions struct {
	// DisableCache bypasses the extraction cache entirely: no lookup, no
	// write. The cache toggle is always explicit, never inferred.
	DisableCache bool
	// Normalize overrides the extractor's default policy when non-nil.
	Normalize *NormalizePolicy
}
