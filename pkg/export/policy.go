// Package export maps provider-native document kinds to the interchange
// formats they are exported as.
//
// The Policy table is the only place where the drain workflow decides between
// a format-converting export and a plain download: kinds present in the table
// are exported, every other kind is downloaded as stored bytes.
package export

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// NativePrefix is the MIME prefix shared by Google-native document kinds.
const NativePrefix = "application/vnd.google-apps."

// Google-native document kinds.
const (
	KindDocument     = NativePrefix + "document"
	KindSpreadsheet  = NativePrefix + "spreadsheet"
	KindPresentation = NativePrefix + "presentation"
	KindDrawing      = NativePrefix + "drawing"
	KindFolder       = NativePrefix + "folder"
)

// Target is the export format for one document kind.
type Target struct {
	// MimeType is the format requested from the provider's export call.
	MimeType string `yaml:"mime_type" json:"mime_type" mapstructure:"mime_type"`

	// Extension is appended to the display name, without a leading dot.
	Extension string `yaml:"extension" json:"extension" mapstructure:"extension"`
}

// Validate checks that the target is usable.
func (t Target) Validate() error {
	if strings.TrimSpace(t.MimeType) == "" {
		return fmt.Errorf("mime_type is required")
	}
	if strings.TrimSpace(t.Extension) == "" {
		return fmt.Errorf("extension is required")
	}
	if strings.HasPrefix(t.Extension, ".") {
		return fmt.Errorf("extension %q must not start with a dot", t.Extension)
	}
	if strings.ContainsAny(t.Extension, `/\`) {
		return fmt.Errorf("extension %q must not contain path separators", t.Extension)
	}
	return nil
}

// Policy is an immutable lookup table from document kind to export target.
type Policy struct {
	table map[string]Target
}

// DefaultTable returns a copy of the built-in export table.
func DefaultTable() map[string]Target {
	return map[string]Target{
		KindDocument: {
			MimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Extension: "docx",
		},
		KindSpreadsheet: {
			MimeType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension: "xlsx",
		},
		KindPresentation: {
			MimeType:  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
			Extension: "pptx",
		},
		KindDrawing: {
			MimeType:  "image/png",
			Extension: "png",
		},
	}
}

// DefaultPolicy returns the policy backed by DefaultTable.
func DefaultPolicy() *Policy {
	return &Policy{table: DefaultTable()}
}

// NewPolicy builds a policy from table after validating every entry.
func NewPolicy(table map[string]Target) (*Policy, error) {
	for kind, target := range table {
		if err := validateEntry(kind, target); err != nil {
			return nil, err
		}
	}
	return &Policy{table: maps.Clone(table)}, nil
}

// With returns a new policy with overrides layered on top of p.
// An override replaces the whole entry for its kind.
func (p *Policy) With(overrides map[string]Target) (*Policy, error) {
	merged := maps.Clone(p.table)
	if merged == nil {
		merged = make(map[string]Target, len(overrides))
	}
	maps.Copy(merged, overrides)
	return NewPolicy(merged)
}

// Lookup returns the export target for kind.
// A false result means the item is downloaded as stored bytes.
func (p *Policy) Lookup(kind string) (Target, bool) {
	t, ok := p.table[kind]
	return t, ok
}

// Kinds returns the mapped kinds in sorted order.
func (p *Policy) Kinds() []string {
	return slices.Sorted(maps.Keys(p.table))
}

// FileName returns the local file name for an exported item.
//
// The extension is always appended, even when displayName already has one:
// "report.doc" exported as xlsx becomes "report.doc.xlsx".
func FileName(displayName string, t Target) string {
	return displayName + "." + t.Extension
}

// IsNativeDocument reports whether kind is a provider-native document kind
// that has no stored bytes to download.
func IsNativeDocument(kind string) bool {
	return strings.HasPrefix(kind, NativePrefix)
}

func validateEntry(kind string, t Target) error {
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("export mapping: empty document kind")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("export mapping for %s: %w", kind, err)
	}
	return nil
}
