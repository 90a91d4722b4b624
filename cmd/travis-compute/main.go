package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	compute "github.com/travis-ci/compute"
	"github.com/travis-ci/compute/backend"
	"github.com/travis-ci/compute/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "travis-compute"
	app.Usage = "Poke cloud compute providers"
	app.Version = compute.VersionString
	app.Flags = config.Flags
	app.Commands = commands()

	_ = app.Run(os.Args)
}

func commands() []cli.Command {
	cmds := []cli.Command{
		{
			Name:   "nodes",
			Usage:  "List deployed and pending-deploy servers",
			Action: runWithCLI(func(i *compute.CLI) error { return i.ListNodes() }),
		},
		{
			Name:   "images",
			Usage:  "List base OS images",
			Action: runWithCLI(func(i *compute.CLI) error { return i.ListImages() }),
		},
		{
			Name:   "locations",
			Usage:  "List data center locations",
			Action: runWithCLI(func(i *compute.CLI) error { return i.ListLocations() }),
		},
		{
			Name:   "networks",
			Usage:  "List virtual networks with their locations",
			Action: runWithCLI(func(i *compute.CLI) error { return i.ListNetworks() }),
		},
		{
			Name:  "create",
			Usage: "Deploy a new server",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Usage: "Name for the new server"},
				cli.StringFlag{Name: "description", Usage: "Free-text description"},
				cli.StringFlag{Name: "image-id", Usage: "Base image id to deploy from"},
				cli.StringFlag{Name: "network-id", Usage: "Network id to attach the server to"},
				cli.StringFlag{Name: "admin-password", Usage: "Initial administrator password"},
				cli.BoolTFlag{Name: "started", Usage: "Boot the server as part of deployment"},
			},
			Action: runWithCLI(func(i *compute.CLI) error { return i.CreateNode() }),
		},
		{
			Name:  "backends",
			Usage: "List the registered provider backends and their config keys",
			Action: func(c *cli.Context) error {
				backend.EachBackend(func(b *backend.Backend) {
					fmt.Printf("%s (%s)\n", b.Alias, b.HumanReadableName)
					for key, help := range b.ProviderHelp {
						fmt.Printf("  %s - %s\n", key, help)
					}
				})
				return nil
			},
		},
	}

	for _, action := range []string{"reboot", "destroy", "start", "shutdown", "poweroff"} {
		action := action
		cmds = append(cmds, cli.Command{
			Name:      action,
			Usage:     fmt.Sprintf("Request a %s of the server with the given id", action),
			ArgsUsage: "<node-id>",
			Action:    runWithCLI(func(i *compute.CLI) error { return i.NodeAction(action) }),
		})
	}

	return cmds
}

func runWithCLI(f func(*compute.CLI) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		i := compute.NewCLI(c)
		if err := i.Setup(); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return f(i)
	}
}
