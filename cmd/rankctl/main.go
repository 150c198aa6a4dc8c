// Command rankctl trains models, seeds the store and renders batch reports.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
