package annotation

import "github.com/google/jsonschema-go/jsonschema"

// ReportSchema returns the JSON Schema of a report document: an object
// mapping file names to arrays of records.
func ReportSchema() *jsonschema.Schema {
	record := &jsonschema.Schema{
		Type: "object",
		Required: []string{
			"found_by",
			"filename",
			"line_number",
			"annotation_token",
			"annotation_data",
		},
		Properties: map[string]*jsonschema.Schema{
			"found_by":         str(),
			"filename":         str(),
			"line_number":      {Type: "integer", Minimum: jsonschema.Ptr(0.0)},
			"annotation_token": str(),
			"annotation_data": {
				OneOf: []*jsonschema.Schema{
					str(),
					{Type: "array", Items: str()},
				},
			},
			"report_group_id": {Type: "integer", Minimum: jsonschema.Ptr(1.0)},
			"extra": {
				Type:                 "object",
				AdditionalProperties: str(),
			},
		},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}

	return &jsonschema.Schema{
		Title:                "Annotation report",
		Description:          "Annotations found in source files, keyed by file name.",
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "array", Items: record},
	}
}

// str returns a new string schema. Schemas must not be shared between
// locations of one document.
func str() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}
