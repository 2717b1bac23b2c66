// Package main provides the entry point for the text-anonymizer CLI.
//
// The anonymizer detects and masks personal data in Finnish and English
// free text: names, phone numbers, identity codes, addresses and other
// identifiers. It works on inline text, whole files and CSV exports, and
// can serve the same pipeline over HTTP.
//
// Usage:
//
//	anonymizer text "Moikka, olen Matti Meikäläinen"
//	anonymizer csv palaute.csv palaute_anon.csv --column-name=palaute
//	anonymizer serve --listen :8000
//
// See --help for all available options.
package main

// main is the entry point for the anonymizer CLI.
func main() {
	Execute()
}
