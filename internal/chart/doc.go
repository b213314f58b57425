// Package chart recovers a chart description from free-text model output.
//
// Model answers are supposed to be a bare JSON object but often arrive
// wrapped in prose or code fences, or are not JSON at all. Extract walks an
// ordered list of recovery tiers, strictest first, and always returns a
// usable value:
//
//  1. direct: the whole input parses as a JSON object
//  2. substring: the span from the first '{' to the last '}' parses
//  3. repaired: the same span after jsonrepair (only WithRepair(true))
//  4. fallback: a fixed "No Data" chart
//
// The substring span is greedy and does no bracket balancing, so input
// holding several independent objects usually ends at the fallback.
// Recovered objects are not checked against the ChartSpec shape.
package chart
