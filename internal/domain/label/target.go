package label

import "io"

// TargetKind selects where a finished label sheet is written
type TargetKind int

const (
	// TargetMemory returns the PDF bytes to the caller
	TargetMemory TargetKind = iota
	// TargetFile writes the PDF to a filesystem path
	TargetFile
	// TargetWriter streams the PDF to an io.Writer
	TargetWriter
	// TargetObject uploads the PDF to object storage under a key
	TargetObject
)

// String returns the string representation of TargetKind
func (k TargetKind) String() string {
	switch k {
	case TargetMemory:
		return "memory"
	case TargetFile:
		return "file"
	case TargetWriter:
		return "writer"
	case TargetObject:
		return "object"
	default:
		return "unknown"
	}
}

// Target is the destination of a write. The zero value is ToMemory().
type Target struct {
	Kind   TargetKind
	Path   string
	Writer io.Writer
	Key    string
}

// ToMemory returns a target that hands the PDF bytes back to the caller
func ToMemory() Target {
	return Target{Kind: TargetMemory}
}

// ToFile returns a target that writes the PDF to path
func ToFile(path string) Target {
	return Target{Kind: TargetFile, Path: path}
}

// ToWriter returns a target that streams the PDF to w
func ToWriter(w io.Writer) Target {
	return Target{Kind: TargetWriter, Writer: w}
}

// ToObject returns a target that uploads the PDF to object storage under key
func ToObject(key string) Target {
	return Target{Kind: TargetObject, Key: key}
}

// ReturnsBytes reports whether a write to this target returns the PDF data
func (t Target) ReturnsBytes() bool {
	return t.Kind == TargetMemory
}

// Validate checks that the target carries what its kind requires
func (t Target) Validate() error {
	switch t.Kind {
	case TargetMemory:
		return nil
	case TargetFile:
		if t.Path == "" {
			return NewConfigurationError("target", "file target requires a path", nil)
		}
	case TargetWriter:
		if t.Writer == nil {
			return NewConfigurationError("target", "writer target requires a writer", nil)
		}
	case TargetObject:
		if t.Key == "" {
			return NewConfigurationError("target", "object target requires a key", nil)
		}
	default:
		return NewConfigurationError("target", "unknown target kind", nil)
	}
	return nil
}
