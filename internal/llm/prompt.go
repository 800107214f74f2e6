package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// BuildSystemPrompt states the output contract shared by every page call.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a document data extraction engine. Return ONLY JSON that matches the provided JSON Schema.",
		"Every field is an object with 'value' and 'bounding_box'.",
		"Bounding boxes use image pixel coordinates: the origin (0,0) is the TOP-LEFT corner of the image and Y grows DOWNWARD.",
		"Never use a bottom-left origin such as PDF user space.",
		"If a field does not appear on this page, set its value to null.",
		"Amounts and quantities must be returned as numbers.",
		"Read the page correctly even when the image is rotated or upside down.",
	}
	return strings.Join(parts, " ")
}

// BuildPagePrompt describes the page and the fields to extract from it.
// Disabled fields are never mentioned.
func BuildPagePrompt(docType string, pageNumber, totalPages int, s schema.Schema) string {
	header := schema.HeaderFields(s)
	items := schema.ItemFields(s)

	var b strings.Builder
	fmt.Fprintf(&b, "Document type: %s.\n", docType)
	fmt.Fprintf(&b, "This image is page %d of %d.\n", pageNumber, totalPages)
	b.WriteString("Extract only what is printed on this single page.\n")

	if len(header) > 0 {
		b.WriteString("\nDocument fields:\n")
		writeFieldList(&b, header)
	}
	if len(items) > 0 {
		b.WriteString("\nLine items ('items'): extract every line item shown on this page, in reading order, with these fields:\n")
		writeFieldList(&b, items)
	}
	return b.String()
}

func writeFieldList(b *strings.Builder, fields []schema.FieldConfig) {
	for _, f := range fields {
		b.WriteString("- ")
		b.WriteString(f.Label)
		b.WriteString(" (")
		b.WriteString(f.Key)
		b.WriteString(")")
		if ins := strings.TrimSpace(f.Instruction); ins != "" {
			b.WriteString(": ")
			b.WriteString(ins)
		}
		b.WriteString("\n")
	}
}
