// Package database provides the SQLite connection used for the route
// catalogue and playback run history.
//
// Schema changes live in the top-level migrations package as embedded
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql files and are applied with:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The pool is limited to one connection; SQLite serialises writers anyway.
package database
