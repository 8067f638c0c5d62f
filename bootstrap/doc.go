// Package bootstrap runs the startup sequence that takes the process from a
// bare environment to a validated, ready-to-serve state: platform detection,
// configuration selection, input repair, database readiness retry, storage
// probing, and finally handoff to the application process.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown()
//
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	os.Exit(app.WaitForShutdown())
package bootstrap
