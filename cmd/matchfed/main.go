// Package main provides the matchfed CLI.
//
// matchfed lists a football news index, marks which entries are match
// reports and extracts the commentary and key-moment GIFs of a report.
//
// Usage:
//
//	matchfed list
//	matchfed show <number|url>
//	matchfed serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
