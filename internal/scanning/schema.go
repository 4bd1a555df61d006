package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var receiptFields = []string{
	"station_name",
	"date_iso",
	"liters",
	"price_total_eur",
	"price_per_liter_eur",
	"currency",
}

// ReceiptSchema is the strict output schema sent to the model: all six fields
// required, each nullable, nothing else allowed.
func ReceiptSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"station_name":        nullable("string"),
			"date_iso":            nullable("string"),
			"liters":              nullable("number"),
			"price_total_eur":     nullable("number"),
			"price_per_liter_eur": nullable("number"),
			"currency":            nullable("string"),
		},
		"required": append([]string(nil), receiptFields...),
	}
}

// lenientReceiptSchema checks free-form model output: fields may be missing,
// numbers may arrive as strings, extra keys are ignored.
func lenientReceiptSchema() map[string]any {
	number := map[string]any{"anyOf": []any{
		map[string]any{"type": "number"},
		map[string]any{"type": "string"},
		map[string]any{"type": "null"},
	}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"station_name":        nullable("string"),
			"date_iso":            nullable("string"),
			"liters":              number,
			"price_total_eur":     number,
			"price_per_liter_eur": number,
			"currency":            nullable("string"),
		},
	}
}

func nullable(typ string) map[string]any {
	return map[string]any{"anyOf": []any{
		map[string]any{"type": typ},
		map[string]any{"type": "null"},
	}}
}

var (
	strictValidator  = mustCompile("fuel-receipt-strict.json", ReceiptSchema())
	lenientValidator = mustCompile("fuel-receipt-lenient.json", lenientReceiptSchema())
)

func mustCompile(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// decodeExtraction validates raw JSON against schema and decodes it
func decodeExtraction(schema *jsonschema.Schema, raw []byte) (*ExtractionResult, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}

	var data ExtractionResult
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	return &data, nil
}
