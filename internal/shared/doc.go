// Package shared holds code used across the splitter service that belongs
// to no single layer.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on log output
//	- workbook and archive fixtures built with excelize
package shared
