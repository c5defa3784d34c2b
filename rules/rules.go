//go:build ruleguard

// Package gorules contains ruleguard checks run by golangci-lint. They keep
// new code on the project's logging, HTTP, telemetry and concurrency helpers.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the manual Add/Done goroutine pattern.
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    publish()
//	}()
//
// becomes
//
//	wg.Go(publish)
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }()").
		Suggest("$wg.Go(func() { $*_ })")

	m.Match(`$wg.Add(1)`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go() which calls Add(1) itself")
}

// StdLog flags the standard logger; output must go through internal/logger
// so module levels and file outputs apply.
func StdLog(m dsl.Matcher) {
	m.Import("log")

	m.Match(`log.Print($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Report("use the module logger from internal/logger instead of $$")

	m.Match(`log.Fatal($*_)`, `log.Fatalf($*_)`, `log.Fatalln($*_)`).
		Report("return the error instead of calling log.Fatal")
}

// DefaultHTTPClient flags requests without a timeout policy.
func DefaultHTTPClient(m dsl.Matcher) {
	m.Import("net/http")

	m.Match(`http.DefaultClient`).
		Report("use internal/httpclient, http.DefaultClient has no timeout")

	m.Match(`http.Get($*_)`, `http.Post($*_)`, `http.Head($*_)`, `http.PostForm($*_)`).
		Report("use internal/httpclient so the request carries a context and timeout")
}

// DirectSentry flags Sentry calls that bypass the enhanced error pipeline,
// which scrubs identifiers and coordinates before anything is sent.
func DirectSentry(m dsl.Matcher) {
	m.Import("github.com/getsentry/sentry-go")

	m.Match(`sentry.CaptureException($*_)`, `sentry.CaptureMessage($*_)`, `sentry.CaptureEvent($*_)`).
		Where(!m.File().PkgPath.Matches(`/internal/errors$`)).
		Report("report through internal/errors so the event is scrubbed")
}
