//go:build e2e

// Package e2e runs the suite against a real Chrome.
//
// These tests are isolated from the standard test suite via build tags.
// They need Chrome or Chromium; when none is installed, set
// YTSUBTEST_DOWNLOAD_BROWSER=1 to let the Rod launcher fetch one.
//
// Running E2E tests:
//
//	go test -tags=e2e ./e2e/...
//
// The tests load the stub extension in testdata/extension, which mimics the
// options page of the real extension: it validates the URL, reports through
// #status and downloads a <video id>_subtitles.<format> file. Nothing here
// talks to YouTube.
//
// Chrome only loads unpacked extensions in new headless mode, so the tests
// run with --headless=new.
package e2e
