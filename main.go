// Command altinnaudit acquires and queries the fleet of deployed Altinn
// apps: it discovers every running (env, org, app) across the public
// cloud clusters, pulls the matching source archive from Altinn Studio,
// and maintains a local lock file pinning each app to the revision on
// disk.
package main

import (
	"fmt"
	"os"

	"altinnaudit.dev/cli"
	"altinnaudit.dev/common"
)

func main() {
	defer common.LogPanic(common.ServiceLogger("altinnaudit", "main"))

	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
