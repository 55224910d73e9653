package store

import (
	"sort"
)

// FileRef points a record field at an uploaded object.
// A persisted FileRef has all three parts set.
type FileRef struct {
	URL         string `json:"url"`
	StoragePath string `json:"storagePath"`
	FileName    string `json:"fileName"`
}

// Complete reports whether every part of the reference is set.
func (f FileRef) Complete() bool {
	return f.URL != "" && f.StoragePath != "" && f.FileName != ""
}

// Map returns the field value stored for the reference.
func (f FileRef) Map() map[string]any {
	return map[string]any{
		"url":         f.URL,
		"storagePath": f.StoragePath,
		"fileName":    f.FileName,
	}
}

// ParseFileRef reads a nested field value. ok is false when the value is not
// shaped like a file reference at all.
func ParseFileRef(value any) (ref FileRef, ok bool) {
	m, isMap := value.(map[string]any)
	if !isMap {
		return FileRef{}, false
	}
	_, hasURL := m["url"]
	_, hasPath := m["storagePath"]
	_, hasName := m["fileName"]
	if !hasURL && !hasPath && !hasName {
		return FileRef{}, false
	}
	ref.URL, _ = m["url"].(string)
	ref.StoragePath, _ = m["storagePath"].(string)
	ref.FileName, _ = m["fileName"].(string)
	return ref, true
}

// FileRefs returns the complete file references held by fields, keyed by field name.
func FileRefs(fields map[string]any) map[string]FileRef {
	refs := map[string]FileRef{}
	for name, value := range fields {
		if ref, ok := ParseFileRef(value); ok && ref.Complete() {
			refs[name] = ref
		}
	}
	return refs
}

// PartialFileRefs lists fields holding a file reference with missing parts.
func PartialFileRefs(fields map[string]any) []string {
	var partial []string
	for name, value := range fields {
		if ref, ok := ParseFileRef(value); ok && !ref.Complete() {
			partial = append(partial, name)
		}
	}
	sort.Strings(partial)
	return partial
}

// FileRefFields lists fields holding anything shaped like a file reference,
// complete or not.
func FileRefFields(fields map[string]any) []string {
	var names []string
	for name, value := range fields {
		if _, ok := ParseFileRef(value); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
