// Package splitter splits a spreadsheet into one workbook per calendar month.
//
// The pipeline is strictly linear and keeps no state between calls:
//
//	Decode -> Parse -> Group -> Encode (once per month) -> BuildArchive
//
// Decode turns a data URI into raw bytes. Parse reads the first sheet of an
// xlsx workbook into ordered Rows, materialising date cells as time.Time.
// Group buckets rows by the YYYY-MM of a named column, keeping input order
// and first-occurrence order of the months. Encode writes one bucket back to
// an xlsx workbook and BuildArchive packs all workbooks into a zip.
//
// Example usage:
//
//	p := splitter.New(splitter.WithPrefix("orders"))
//	res, err := p.Split(ctx, splitter.Request{
//		FilePayload: "data:application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;base64,...",
//		DateColumn:  "Date",
//	})
//	if err != nil {
//		// errors.Is(err, splitter.ErrParse) etc.
//	}
//	fmt.Println(res.FileCount, res.ArchivePayload[:30])
//
// Rows whose date column is missing or not a valid date are dropped
// silently; they are counted in Result.Stats.RowsSkipped for logging only.
package splitter
