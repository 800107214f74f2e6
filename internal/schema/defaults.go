package schema

import "github.com/joseph-ayodele/docs-extractor/constants"

// DefaultConfig returns the built-in invoice and purchase order schemas.
func DefaultConfig() Config {
	return Config{
		"invoice": {
			header("invoice_number", "Invoice Number", constants.FieldTypeString, constants.OutputFormatNone, "Look for labels such as \"Invoice No.\" or \"Invoice Number\"."),
			header("issue_date", "Issue Date", constants.FieldTypeString, constants.OutputFormatDateYMD, "Extract the issue or creation date."),
			header("due_date", "Due Date", constants.FieldTypeString, constants.OutputFormatDateYMD, "Extract the payment due date."),
			header("issuer_name", "Issuer", constants.FieldTypeString, constants.OutputFormatNone, "Company or person that issued the invoice."),
			header("recipient_name", "Recipient", constants.FieldTypeString, constants.OutputFormatNone, "Company or person the invoice is addressed to."),
			header("total_amount", "Total Amount", constants.FieldTypeNumber, constants.OutputFormatNone, "Final amount billed, e.g. \"Total\" or \"Amount Due\"."),
			item("description", "Description", constants.FieldTypeString, "Item or service description."),
			item("quantity", "Quantity", constants.FieldTypeNumber, "Quantity of the item."),
			item("unit_price", "Unit Price", constants.FieldTypeNumber, "Unit price of the item."),
			item("total_price", "Amount", constants.FieldTypeNumber, "Line total (unit price x quantity)."),
			item("tax_rate", "Tax Rate", constants.FieldTypeString, "Tax rate such as 10% or 8%, or \"exempt\"."),
		},
		"purchase_order": {
			header("order_number", "Order Number", constants.FieldTypeString, constants.OutputFormatNone, "Look for \"Order No.\" or \"PO Number\"."),
			header("order_date", "Order Date", constants.FieldTypeString, constants.OutputFormatDateYMD, "Extract the order date."),
			header("vendor_name", "Vendor", constants.FieldTypeString, constants.OutputFormatNone, "Supplier company or store name."),
			header("shipping_address", "Shipping Address", constants.FieldTypeString, constants.OutputFormatNone, "Delivery address for the goods."),
			header("total_amount", "Total Amount", constants.FieldTypeNumber, constants.OutputFormatNone, "Final ordered amount."),
			item("description", "Description", constants.FieldTypeString, "Item or service description."),
			item("quantity", "Quantity", constants.FieldTypeNumber, "Quantity of the item."),
			item("unit_price", "Unit Price", constants.FieldTypeNumber, "Unit price of the item."),
			item("total_price", "Amount", constants.FieldTypeNumber, "Line total (unit price x quantity)."),
			disabled(item("tax_rate", "Tax Rate", constants.FieldTypeString, "Tax rate such as 10% or 8%, or \"exempt\".")),
		},
	}
}

func header(key, label string, t constants.FieldType, f constants.OutputFormat, instruction string) FieldConfig {
	return FieldConfig{Key: key, Label: label, Enabled: true, Type: t, OutputFormat: f, Instruction: instruction}
}

func item(key, label string, t constants.FieldType, instruction string) FieldConfig {
	return FieldConfig{Key: key, Label: label, Enabled: true, IsItemField: true, Type: t, OutputFormat: constants.OutputFormatNone, Instruction: instruction}
}

func disabled(f FieldConfig) FieldConfig {
	f.Enabled = false
	return f
}
