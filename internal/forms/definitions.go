package forms

import (
	"strings"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
)

// Kind tells how records of a collection come into being.
type Kind string

const (
	// KindSubmission records are created by public form posts.
	KindSubmission Kind = "submission"
	// KindUpload records are created by admin file uploads.
	KindUpload Kind = "upload"
	// KindTable is a fixed array replaced as a whole.
	KindTable Kind = "table"
)

// Field is one form input. Rules use go-playground/validator tag syntax.
type Field struct {
	Name  string
	Label string
	Rules string
}

// Column is one exported column.
type Column struct {
	Key   string
	Label string
}

// Definition describes one collection: its inputs, attachments, export
// columns and default order.
type Definition struct {
	Path        string
	Title       string
	Kind        Kind
	Fields      []Field
	Files       []Field
	DefaultSort string
	DefaultDesc bool
}

// Columns returns the export columns: every field, every file, then the submission time.
func (d Definition) Columns() []Column {
	cols := make([]Column, 0, len(d.Fields)+len(d.Files)+1)
	for _, f := range d.Fields {
		cols = append(cols, Column{Key: f.Name, Label: f.Label})
	}
	for _, f := range d.Files {
		cols = append(cols, Column{Key: f.Name, Label: f.Label})
	}
	if d.Kind != KindTable {
		cols = append(cols, Column{Key: store.FieldTimestamp, Label: "Submitted At"})
	}
	return cols
}

// Rules returns the validation rules keyed by field name.
func (d Definition) Rules() map[string]any {
	rules := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		if f.Rules != "" {
			rules[f.Name] = f.Rules
		}
	}
	return rules
}

// FileField reports whether name is one of the collection's attachments.
func (d Definition) FileField(name string) bool {
	for _, f := range d.Files {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Public reports whether anonymous visitors may create records.
func (d Definition) Public() bool {
	return d.Kind == KindSubmission
}

var definitions = []Definition{
	{
		Path:  store.PathHomeForm,
		Title: "Home Page Enquiries",
		Kind:  KindSubmission,
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required,min=2"},
			{Name: "phone", Label: "Phone", Rules: "required,indian_mobile"},
			{Name: "city", Label: "City", Rules: "required,min=2"},
			{Name: "experience", Label: "Trading Experience", Rules: "required"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathContactEntries,
		Title: "Contact Us Messages",
		Kind:  KindSubmission,
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required,min=2"},
			{Name: "email", Label: "Email", Rules: "required,email"},
			{Name: "phone", Label: "Phone", Rules: "required,indian_mobile"},
			{Name: "subject", Label: "Subject", Rules: "omitempty,min=3"},
			{Name: "message", Label: "Message", Rules: "required,min=10"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathPopupForms,
		Title: "Popup Enquiries",
		Kind:  KindSubmission,
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required,min=2"},
			{Name: "phone", Label: "Phone", Rules: "required,indian_mobile"},
			{Name: "email", Label: "Email", Rules: "omitempty,email"},
			{Name: "service", Label: "Service Interested In", Rules: "omitempty"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathConsentForms,
		Title: "Client Service Consent Forms",
		Kind:  KindSubmission,
		Fields: []Field{
			{Name: "clientName", Label: "Client Name", Rules: "required,min=2"},
			{Name: "email", Label: "Email", Rules: "required,email"},
			{Name: "phone", Label: "Phone", Rules: "required,indian_mobile"},
			{Name: "panNumber", Label: "PAN", Rules: "required,pan"},
			{Name: "aadhaarNumber", Label: "Aadhaar", Rules: "required,aadhaar"},
			{Name: "address", Label: "Address", Rules: "required,min=10"},
			{Name: "servicePlan", Label: "Service Plan", Rules: "required"},
			{Name: "consent", Label: "Consent Given", Rules: "required"},
		},
		Files: []Field{
			{Name: "panCard", Label: "PAN Card"},
			{Name: "aadhaarCard", Label: "Aadhaar Card"},
			{Name: "signature", Label: "Signature"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathInvestorFeedback,
		Title: "Investor Charter Feedback",
		Kind:  KindSubmission,
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required,min=2"},
			{Name: "email", Label: "Email", Rules: "omitempty,email"},
			{Name: "rating", Label: "Rating", Rules: "required,min=1,max=5"},
			{Name: "feedback", Label: "Feedback", Rules: "required,min=5"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathReports,
		Title: "Daily Reports",
		Kind:  KindUpload,
		Fields: []Field{
			{Name: "day", Label: "Day", Rules: "required,weekday"},
			{Name: "title", Label: "Title", Rules: "omitempty,min=2"},
		},
		Files: []Field{
			{Name: "file", Label: "File"},
		},
		DefaultSort: store.FieldTimestamp,
		DefaultDesc: true,
	},
	{
		Path:  store.PathComplaintTable,
		Title: "Complaint Data",
		Kind:  KindTable,
		Fields: []Field{
			{Name: "srNo", Label: "Sr. No."},
			{Name: "source", Label: "Received from"},
			{Name: "pendingLastMonth", Label: "Pending at the end of last month"},
			{Name: "received", Label: "Received"},
			{Name: "resolved", Label: "Resolved"},
			{Name: "totalPending", Label: "Total Pending"},
			{Name: "pendingOver3Months", Label: "Pending complaints > 3 months"},
			{Name: "avgResolutionDays", Label: "Average Resolution time (in days)"},
		},
	},
}

// Lookup returns the definition of the collection at path.
func Lookup(path string) (Definition, bool) {
	for _, d := range definitions {
		if d.Path == path {
			return d, true
		}
	}
	return Definition{}, false
}

// Resolve finds a definition by URL name: the full path, a path with its
// slash escaped, or the first segment of a nested path.
func Resolve(name string) (Definition, bool) {
	name = strings.ReplaceAll(name, "%2F", "/")
	name = strings.ReplaceAll(name, "%2f", "/")
	if d, ok := Lookup(name); ok {
		return d, true
	}
	for _, d := range definitions {
		if first, _, nested := strings.Cut(d.Path, "/"); nested && first == name {
			return d, true
		}
	}
	return Definition{}, false
}

// All returns every collection definition.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}
