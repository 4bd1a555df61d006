package scanning

import "strings"

// SchemaName is the name the structured output schema is registered under
const SchemaName = "FuelReceipt"

// fuelReceiptPrompt is the shared prompt used by all providers. Receipts are
// German: decimal comma, DD.MM.YY dates, "Summe"/"Gesamt" totals.
var fuelReceiptPrompt = strings.Join([]string{
	"You are an expert OCR and data extraction system for German fuel receipts.",
	"Parse the image carefully and return all values in the JSON schema below.",
	"",
	"Rules:",
	"- Always read the fuel type (Diesel, Super, E10, etc.).",
	"- The volume is shown after the word 'Liter' or symbol 'L'.",
	"- The price per liter is shown next to '/L' or '/ Liter'.",
	"- The total price (Summe or Gesamt) is the amount paid, in EUR.",
	"- Dates follow the format DD.MM.YY or DD.MM.YYYY; convert to ISO-8601 (YYYY-MM-DD).",
	"- All numbers must use a dot for decimals, not a comma.",
	"- Never omit a value if it is visible; if not visible, set null.",
	"",
	"Extract the following fields exactly:",
	"- station_name: the name of the fuel station or operator",
	"- date_iso: ISO date of the receipt",
	"- liters: numeric fuel volume in liters",
	"- price_total_eur: total amount in EUR",
	"- price_per_liter_eur: price per liter in EUR",
	"- currency: currency code (usually EUR)",
}, "\n")

// jsonOnlySuffix is appended for providers without schema constrained output
const jsonOnlySuffix = `

Return ONLY valid JSON in this exact format:
{
  "station_name": "Aral",
  "date_iso": "YYYY-MM-DD",
  "liters": 0.00,
  "price_total_eur": 0.00,
  "price_per_liter_eur": 0.000,
  "currency": "EUR"
}

Do not include any text before or after the JSON and do not use markdown code blocks.`
