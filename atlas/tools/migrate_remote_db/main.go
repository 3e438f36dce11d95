package main

import (
	"fmt"
	"os"
	"os/exec"

	"quantsim/src/config"
	"quantsim/src/database"
)

// Applies the atlas migrations to the database named in the loaded config.
func main() {
	appConfig, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	uri := database.MakeConnectionString(&appConfig.Postgres)

	fmt.Printf("Executing migrations against db at %s:%d/%s\n",
		appConfig.Postgres.Host, appConfig.Postgres.Port, appConfig.Postgres.Database)

	cmd := exec.Command("atlas", "migrate", "apply",
		"--url", uri,
		"--dir", "file://atlas/migrations",
	)
	output, err := cmd.CombinedOutput()

	fmt.Print(string(output))

	if err != nil {
		fmt.Printf("failed to run atlas migrations: %v\n", err)
		os.Exit(1)
	}
}
