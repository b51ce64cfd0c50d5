// Package history persists append-only snapshots of analysis runs.
//
// Each analysis kind has its own JSON store file. A store is an explicit
// value owned by the caller for the duration of one run:
//
//	data := history.Load[history.QualityData](ctx, path, logger)
//	data.Append(snapshot, time.Now())
//	_ = history.Save(ctx, path, data, logger)
//
// Appending never rewrites or removes earlier snapshots. There is no
// retention policy; store files grow with every run.
//
// SQLiteIndex optionally mirrors every snapshot into a SQLite database so
// that run history can be queried without parsing the JSON stores.
package history
