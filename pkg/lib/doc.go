// Package lib provides a Go SDK for the ukit utility toolkit.
//
// It exposes two layers:
//
//   - The toolkit primitives: a named-parameter database engine ([Database],
//     [Params], [Row]) and cooperative task running ([Token], [Source],
//     [Action], [Queue]). These are plain building blocks for applications.
//   - A pipeline runner client ([Client]) that executes step pipelines and
//     records runs in a SQLite database, the same engine the ukit CLI uses.
//
// # Quick Start
//
// Create a client and run a pipeline:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.RunPipeline(ctx, lib.Pipeline{
//	    Name:        "hello",
//	    Concurrency: 1,
//	    Steps: []lib.PipelineStep{
//	        {Name: "wait", Type: lib.StepTypeDelay, Duration: time.Second},
//	        {Name: "greet", Type: lib.StepTypeCommand, Command: []string{"echo", "hello"}},
//	    },
//	}, nil)
//
// # Cancellation
//
// Runs are cancelled cooperatively through a [Token]. Cancellation only
// flows from a [Source] to its tokens, never backwards:
//
//	source := lib.NewSource()
//	go func() {
//	    <-time.After(10 * time.Second)
//	    source.Cancel()
//	}()
//	run, err := client.RunPipeline(ctx, p, &lib.RunPipelineOpts{Token: source.Token()})
//
// # Database Toolkit
//
// The database layer runs SQL with :name placeholders against any
// [Backend] and maps rows to structs through converter functions:
//
//	backend, _ := lib.NewSQLiteBackend(ctx, lib.SQLiteBackendConfig{DBPath: "app.db"})
//	d, _ := lib.NewDatabase(lib.DatabaseConfig{Backend: backend})
//	count, _, _ := d.Field(ctx, "select count(*) from users where age > :age", lib.Params{"age": 21}, int64(0))
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same identity already exists.
//   - [ErrNotValid]: Invalid input or operation.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The
// underlying storage uses SQLite with WAL mode.
package lib
