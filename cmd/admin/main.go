// Command admin runs schema, seeding and maintenance tasks against the
// configured database.
package main

import (
	"os"

	"kinship/internal/middleware"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		middleware.Logger.Error("admin command failed", "error", err)
		os.Exit(1)
	}
}
