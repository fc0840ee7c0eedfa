// Command ytsubtest runs and maintains the end-to-end tests of the YouTube
// subtitle downloader extension.
package main

import (
	"os"

	"github.com/ibeckermayer/ytsubtest/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
