// Package pipeline runs a full analysis pass over a lessons directory.
//
// A run discovers lesson documents, analyzes them on a bounded worker pool,
// appends one snapshot per analysis kind to the history stores and writes
// the run reports. Per-document and persistence failures are logged and
// counted; only an unreadable source directory or a cancelled context fails
// the run, and even then Run returns a Result rather than an error.
//
//	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	result := p.Run(ctx, cfg.Lessons.Dir)
package pipeline
