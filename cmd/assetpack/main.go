// Assetpack is an incremental image asset packager.
package main

import "github.com/albertocavalcante/assetpack/cmd/assetpack/internal/cli"

func main() {
	cli.Execute()
}
