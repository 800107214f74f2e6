package constants

// FieldType is the data type the oracle is asked to return for a field.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
)

func (t FieldType) Valid() bool {
	return t == FieldTypeString || t == FieldTypeNumber
}

// OutputFormat controls how a field value is rendered on export.
type OutputFormat string

const (
	OutputFormatNone    OutputFormat = "none"
	OutputFormatDateYMD OutputFormat = "date-yyyy-mm-dd"
)

func (f OutputFormat) Valid() bool {
	return f == "" || f == OutputFormatNone || f == OutputFormatDateYMD
}

// Reserved record keys that are never schema fields.
const (
	KeyDocumentType = "document_type"
	KeyItems        = "items"
	KeyPageNumber   = "page_number"
)
